package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"revoice/internal/fileutil"
	"revoice/internal/logging"
	"revoice/internal/services"
	"revoice/internal/session"
)

// Upload creates a session and stores the video read from src under
// original/. filename supplies the extension, which must be a supported
// video container. An empty name issues a random session id.
func (p *Pipeline) Upload(ctx context.Context, name, filename string, src io.Reader) (*session.Session, error) {
	base := filepath.Base(strings.TrimSpace(filename))
	if base == "." || base == string(filepath.Separator) || !session.IsVideoFile(base) {
		return nil, services.Wrap(services.ErrInput, "upload", "validate",
			fmt.Sprintf("unsupported video file %q (want one of %s)", filename, strings.Join(session.VideoExtensions, " ")), nil)
	}

	store := p.deps.Store
	sess, err := store.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	ws := store.Workspace(sess.ID)
	dest := filepath.Join(ws.OriginalDir(), base)
	if _, err := fileutil.WriteAtomic(dest, src); err != nil {
		_ = store.Delete(context.WithoutCancel(ctx), sess.ID)
		return nil, services.Wrap(services.ErrInput, "upload", "store video", base, err)
	}

	sess.VideoPath = dest
	if err := store.Update(ctx, sess); err != nil {
		return nil, err
	}
	logging.WithContext(services.WithSessionID(ctx, sess.ID), p.logger).Info("video uploaded",
		logging.String(logging.FieldEventType, "upload"),
		logging.String("video", dest),
	)
	return sess, nil
}

// UploadFile uploads a local video file.
func (p *Pipeline) UploadFile(ctx context.Context, name, path string) (*session.Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrInput, "upload", "open", path, err)
	}
	defer f.Close()
	return p.Upload(ctx, name, path, f)
}
