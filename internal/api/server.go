package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"revoice/internal/config"
	"revoice/internal/logging"
	"revoice/internal/pipeline"
	"revoice/internal/preflight"
	"revoice/internal/services"
	"revoice/internal/session"
)

// maxUploadBytes caps one uploaded video.
const maxUploadBytes = 8 << 30

// multipartMemory is how much of a multipart body is held in memory before
// spilling to temporary files.
const multipartMemory = 32 << 20

// Stages is the pipeline surface the server drives.
type Stages interface {
	Upload(ctx context.Context, name, filename string, src io.Reader) (*session.Session, error)
	Transcribe(ctx context.Context, id string) (*session.Session, error)
	Translate(ctx context.Context, id, target string) (*session.Session, error)
	Generate(ctx context.Context, id string) (pipeline.GenerateResult, error)
}

// Server exposes the dubbing stages over HTTP.
type Server struct {
	cfg    *config.Config
	stages Stages
	store  *session.Store
	logger *slog.Logger

	listener net.Listener
	server   *http.Server
}

// NewServer builds a server bound to cfg.Paths.APIBind.
func NewServer(cfg *config.Config, stages Stages, store *session.Store, logger *slog.Logger) (*Server, error) {
	if cfg == nil || stages == nil || store == nil {
		return nil, services.Wrap(services.ErrConfiguration, "api", "new server", "config, stages, and store are required", nil)
	}
	s := &Server{
		cfg:    cfg,
		stages: stages,
		store:  store,
		logger: logging.NewComponentLogger(logger, "api-server"),
	}
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Handler returns the routed handler wrapped in request-id middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("POST /transcribe", s.handleTranscribe)
	mux.HandleFunc("POST /translate", s.handleTranslate)
	mux.HandleFunc("POST /generate", s.handleGenerate)
	mux.HandleFunc("GET /sessions", s.handleSessions)
	mux.HandleFunc("GET /sessions/{id}", s.handleSession)
	mux.HandleFunc("GET /sessions/{id}/video", s.handleVideo)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	return s.withRequestID(mux)
}

// Start listens on the configured bind address and shuts down when ctx ends.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Paths.APIBind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr reports the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, waiting briefly for in-flight requests.
func (s *Server) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := services.WithRequestID(r.Context(), requestID)
		started := time.Now()
		next.ServeHTTP(w, r.WithContext(ctx))
		logging.WithContext(ctx, s.logger).Debug("request served",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Duration("elapsed", time.Since(started)),
		)
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	extendDeadlines(w)
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		s.writeError(w, services.Wrap(services.ErrInput, "upload", "parse form", "multipart body with a video file is required", err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("video")
	if err != nil {
		s.writeError(w, services.Wrap(services.ErrInput, "upload", "read form", "form file \"video\" is required", err))
		return
	}
	defer file.Close()

	sess, err := s.stages.Upload(r.Context(), strings.TrimSpace(r.FormValue("user")), header.Filename, file)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, SessionResponse{
		Message: "video uploaded",
		Session: FromSession(sess),
	})
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	req, err := readStageRequest(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	extendDeadlines(w)
	sess, err := s.stages.Transcribe(r.Context(), req.User)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, StageResponse{
		Message:        "transcription completed",
		Session:        FromSession(sess),
		TranscriptPath: s.store.Workspace(sess.ID).OriginalTranscript(),
		Segments:       sess.SegmentCount,
	})
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	req, err := readStageRequest(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if req.TargetLang == "" {
		s.writeError(w, services.Wrap(services.ErrInput, "translate", "read request", "target_lang is required", nil))
		return
	}
	extendDeadlines(w)
	sess, err := s.stages.Translate(r.Context(), req.User, req.TargetLang)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, StageResponse{
		Message:        "translation completed",
		Session:        FromSession(sess),
		TranscriptPath: s.store.Workspace(sess.ID).TranslatedTranscript(),
		Segments:       sess.SegmentCount,
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	req, err := readStageRequest(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	extendDeadlines(w)
	result, err := s.stages.Generate(r.Context(), req.User)
	if err != nil {
		s.writeError(w, err)
		return
	}
	ws := s.store.Workspace(result.Session.ID)
	s.writeJSON(w, http.StatusOK, GenerateResponse{
		Message:        "dubbed video generated",
		Session:        FromSession(result.Session),
		FinalVideoPath: result.FinalVideo,
		Mixed:          result.Mixed,
		Report:         FromReport(result.Report, ws.ReportPath()),
	})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	var statuses []session.Status
	for _, value := range r.URL.Query()["status"] {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		status, ok := session.ParseStatus(trimmed)
		if !ok {
			s.writeError(w, services.Wrap(services.ErrInput, "api", "list sessions", fmt.Sprintf("unknown status %q", trimmed), nil))
			return
		}
		statuses = append(statuses, status)
	}
	sessions, err := s.store.List(r.Context(), statuses...)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, SessionListResponse{Sessions: FromSessions(sessions)})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, SessionResponse{Session: FromSession(sess)})
}

func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	path := s.store.Workspace(sess.ID).FinalVideo()
	if _, err := os.Stat(path); err != nil {
		s.writeError(w, services.Wrap(services.ErrNotFound, "api", "download", "no dubbed video for session "+sess.ID, err))
		return
	}
	extendDeadlines(w)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": sess.ID + "_dubbed.mp4"}))
	http.ServeFile(w, r, path)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	counts, err := s.store.Stats(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	payload := StatusResponse{
		DatabasePath:  s.store.Path(),
		SessionCounts: make(map[string]int, len(counts)),
		Dependencies:  FromDependencies(preflight.CheckSystemDeps(s.cfg)),
	}
	for status, n := range counts {
		payload.SessionCounts[string(status)] = n
	}
	s.writeJSON(w, http.StatusOK, payload)
}

// stageRequest carries the fields the stage endpoints accept.
type stageRequest struct {
	User       string `json:"user"`
	TargetLang string `json:"target_lang"`
}

// readStageRequest accepts urlencoded, multipart, or JSON bodies.
func readStageRequest(r *http.Request) (stageRequest, error) {
	var req stageRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			return req, services.Wrap(services.ErrInput, "api", "decode request", "invalid JSON body", err)
		}
	case "multipart/form-data":
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			return req, services.Wrap(services.ErrInput, "api", "parse form", "invalid multipart body", err)
		}
		req.User, req.TargetLang = r.FormValue("user"), r.FormValue("target_lang")
	default:
		req.User, req.TargetLang = r.FormValue("user"), r.FormValue("target_lang")
	}
	req.User = strings.TrimSpace(req.User)
	req.TargetLang = strings.TrimSpace(req.TargetLang)
	if req.User == "" {
		return req, services.Wrap(services.ErrInput, "api", "read request", "user is required", nil)
	}
	return req, nil
}

// extendDeadlines lifts the server-wide timeouts for a stage that may run
// for minutes.
func extendDeadlines(w http.ResponseWriter) {
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := services.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn("request failed", logging.Error(err), logging.String("failure_kind", services.FailureKind(err)))
	}
	s.writeJSON(w, status, ErrorResponse{Error: err.Error(), Kind: services.FailureKind(err)})
}
