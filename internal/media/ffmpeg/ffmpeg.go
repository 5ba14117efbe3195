package ffmpeg

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	langpkg "revoice/internal/language"
	"revoice/internal/logging"
	"revoice/internal/services"
)

// CommandRunner executes a command and returns an error carrying its output
// when it fails.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Tool wraps one ffmpeg binary.
type Tool struct {
	binary string
	logger *slog.Logger
	run    CommandRunner
}

// New constructs a Tool for binary ("ffmpeg" when empty).
func New(binary string, logger *slog.Logger) *Tool {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Tool{
		binary: binary,
		logger: logging.NewComponentLogger(logger, "ffmpeg"),
		run:    defaultCommandRunner,
	}
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (t *Tool) WithCommandRunner(r CommandRunner) {
	if t != nil && r != nil {
		t.run = r
	}
}

// ExtractAudio decodes the audioStream-th audio stream (0-based, counting
// audio streams only) of input to mono 16-bit PCM WAV at sampleRate.
func (t *Tool) ExtractAudio(ctx context.Context, input, output string, sampleRate, audioStream int) error {
	if audioStream < 0 {
		return services.Wrap(services.ErrInput, "ffmpeg", "extract audio", fmt.Sprintf("invalid audio stream %d", audioStream), nil)
	}
	if err := t.toPCM(ctx, input, output, sampleRate, fmt.Sprintf("0:a:%d", audioStream)); err != nil {
		return services.Wrap(services.ErrMux, "ffmpeg", "extract audio", input, err)
	}
	return nil
}

// NormalizeClip converts a synthesized clip in any container ffmpeg reads to
// mono 16-bit PCM WAV at sampleRate.
func (t *Tool) NormalizeClip(ctx context.Context, input, output string, sampleRate int) error {
	if err := t.toPCM(ctx, input, output, sampleRate, ""); err != nil {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "normalize clip", input, err)
	}
	return nil
}

// MuxRequest describes a video whose audio is replaced.
type MuxRequest struct {
	VideoPath  string
	AudioPath  string
	OutputPath string
	// Language tags the new audio stream; empty leaves it untagged.
	Language string
}

// Mux copies the first video stream of VideoPath untouched, replaces the
// audio with AudioPath, and truncates to the shorter of the two streams.
func (t *Tool) Mux(ctx context.Context, req MuxRequest) error {
	if strings.TrimSpace(req.VideoPath) == "" || strings.TrimSpace(req.AudioPath) == "" || strings.TrimSpace(req.OutputPath) == "" {
		return services.Wrap(services.ErrMux, "ffmpeg", "mux", "video, audio, and output paths are required", nil)
	}
	for _, path := range []string{req.VideoPath, req.AudioPath} {
		if _, err := os.Stat(path); err != nil {
			return services.Wrap(services.ErrMux, "ffmpeg", "mux", "input missing", err)
		}
	}

	err := t.atomic(ctx, req.OutputPath, func(tmpPath string) []string {
		args := []string{
			"-hide_banner", "-loglevel", "error", "-y",
			"-i", req.VideoPath,
			"-i", req.AudioPath,
			"-map", "0:v:0",
			"-map", "1:a:0",
			"-c:v", "copy",
			"-c:a", "aac",
		}
		if lang := strings.TrimSpace(req.Language); lang != "" {
			args = append(args, "-metadata:s:a:0", "language="+langpkg.ToISO3(lang))
		}
		return append(args, "-shortest", tmpPath)
	})
	if err != nil {
		return services.Wrap(services.ErrMux, "ffmpeg", "mux", req.OutputPath, err)
	}
	t.logger.Info("dubbed audio muxed",
		logging.String(logging.FieldEventType, "mux_complete"),
		logging.String("video", req.VideoPath),
		logging.String("output", req.OutputPath),
	)
	return nil
}

// toPCM converts input to mono PCM WAV. A non-empty streamMap selects one
// audio stream and drops video.
func (t *Tool) toPCM(ctx context.Context, input, output string, sampleRate int, streamMap string) error {
	if sampleRate <= 0 {
		return fmt.Errorf("sample rate %d must be positive", sampleRate)
	}
	if _, err := os.Stat(input); err != nil {
		return fmt.Errorf("input missing: %w", err)
	}
	return t.atomic(ctx, output, func(tmpPath string) []string {
		args := []string{"-hide_banner", "-loglevel", "error", "-y", "-i", input}
		if streamMap != "" {
			args = append(args, "-vn", "-map", streamMap)
		}
		return append(args,
			"-ac", "1",
			"-ar", strconv.Itoa(sampleRate),
			"-c:a", "pcm_s16le",
			"-f", "wav",
			tmpPath,
		)
	})
}

// atomic runs ffmpeg against a hidden sibling of output that keeps its
// extension, then renames it into place.
func (t *Tool) atomic(ctx context.Context, output string, build func(tmpPath string) []string) error {
	dir := filepath.Dir(output)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure output dir: %w", err)
	}
	tmpPath := filepath.Join(dir, ".tmp-"+filepath.Base(output))
	args := build(tmpPath)

	t.logger.Debug("executing ffmpeg", logging.String("output", output), logging.Int("arg_count", len(args)))
	if err := t.run(ctx, t.binary, args...); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("ffmpeg failed: %w", err)
	}
	if _, err := os.Stat(tmpPath); err != nil {
		return fmt.Errorf("ffmpeg did not produce output file: %w", err)
	}
	if err := os.Rename(tmpPath, output); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("finalize output: %w", err)
	}
	return nil
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
