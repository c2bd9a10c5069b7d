package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"noticiero/internal/config"
	"noticiero/internal/logging"
	"noticiero/internal/pipeline"
	"noticiero/internal/services"
	"noticiero/internal/storage"
	"noticiero/internal/store"
)

const (
	requestIDHeader = "X-Request-ID"
	maxBodyBytes    = 1 << 20
)

type apiServer struct {
	bind   string
	token  string
	logger *slog.Logger
	daemon *Daemon
	orch   *pipeline.Orchestrator
	store  *store.Store

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

// envelope is the body of every JSON response.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		token:  cfg.Paths.APIToken,
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
		orch:   d.orch,
		store:  d.store,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) routes() http.Handler {
	mux := http.NewServeMux()
	auth := s.authMiddleware

	mux.HandleFunc("POST /api/noticieros", auth(s.handleDraft))
	mux.HandleFunc("GET /api/noticieros", auth(s.handleList))
	mux.HandleFunc("GET /api/noticieros/latest", s.handleLatest)
	mux.HandleFunc("GET /api/noticieros/latest/audio", s.handleLatestAudio)
	mux.HandleFunc("GET /api/noticieros/{id}", s.handleGet)
	mux.HandleFunc("DELETE /api/noticieros/{id}", auth(s.handleDelete))
	mux.HandleFunc("PATCH /api/noticieros/{id}/publish", auth(s.handlePublish))
	mux.HandleFunc("PATCH /api/noticieros/{id}/reject", auth(s.handleReject))
	mux.HandleFunc("GET /api/noticieros/{id}/audio", s.handleAudio)
	mux.HandleFunc("GET /api/noticieros/{id}/audio-url", s.handleAudioURL)
	mux.HandleFunc("GET /api/noticieros/{id}/audio-info", s.handleAudioInfo)

	mux.HandleFunc("GET /api/feeds", auth(s.handleListFeeds))
	mux.HandleFunc("POST /api/feeds", auth(s.handleAddFeed))
	mux.HandleFunc("PATCH /api/feeds/{id}/activate", auth(s.handleFeedActive(true)))
	mux.HandleFunc("PATCH /api/feeds/{id}/deactivate", auth(s.handleFeedActive(false)))
	mux.HandleFunc("DELETE /api/feeds/{id}", auth(s.handleDeleteFeed))

	mux.HandleFunc("GET /api/settings", auth(s.handleGetSettings))
	mux.HandleFunc("PUT /api/settings", auth(s.handleUpdateSettings))

	mux.HandleFunc("GET /api/status", auth(s.handleStatus))

	return s.withRequestID(mux)
}

func (s *apiServer) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(services.WithRequestID(r.Context(), id)))
	})
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		return errors.New("api listen: paths.api_bind is empty")
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleDraft(w http.ResponseWriter, r *http.Request) {
	n, err := s.orch.Draft(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, envelope{Success: true, Data: n})
}

func (s *apiServer) handleList(w http.ResponseWriter, r *http.Request) {
	var filter store.ListFilter
	query := r.URL.Query()
	if value := strings.TrimSpace(query.Get("state")); value != "" {
		state, ok := store.ParseState(value)
		if !ok {
			s.writeError(w, r, http.StatusBadRequest, fmt.Sprintf("unknown state %q", value))
			return
		}
		filter.State = state
	}
	if value := strings.TrimSpace(query.Get("limit")); value != "" {
		limit, err := strconv.Atoi(value)
		if err != nil || limit <= 0 {
			s.writeError(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}
	items, err := s.orch.List(r.Context(), filter)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if items == nil {
		items = []*store.Noticiero{}
	}
	s.writeJSON(w, http.StatusOK, envelope{Success: true, Data: items})
}

func (s *apiServer) handleLatest(w http.ResponseWriter, r *http.Request) {
	n, err := s.orch.Latest(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{Success: true, Data: n})
}

func (s *apiServer) handleGet(w http.ResponseWriter, r *http.Request) {
	n, err := s.orch.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{Success: true, Data: n})
}

func (s *apiServer) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{Success: true, Message: "noticiero deleted"})
}

func (s *apiServer) handlePublish(w http.ResponseWriter, r *http.Request) {
	n, err := s.orch.Publish(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{Success: true, Data: n, Message: "noticiero published; audio generation queued"})
}

func (s *apiServer) handleReject(w http.ResponseWriter, r *http.Request) {
	n, err := s.orch.Reject(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{Success: true, Data: n, Message: "noticiero rejected"})
}

func (s *apiServer) handleAudio(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	obj, err := s.orch.OpenAudio(r.Context(), id, requestedRange(r))
	if err != nil {
		s.writeAudioFailure(w, r, err)
		return
	}
	s.streamAudio(w, r, id, obj)
}

func (s *apiServer) handleLatestAudio(w http.ResponseWriter, r *http.Request) {
	n, obj, err := s.orch.OpenLatestAudio(r.Context(), requestedRange(r))
	if err != nil {
		s.writeAudioFailure(w, r, err)
		return
	}
	s.streamAudio(w, r, n.ID, obj)
}

// requestedRange returns the Range header when it names a single byte range.
// Anything else is ignored and the whole file is served.
func requestedRange(r *http.Request) string {
	value := strings.TrimSpace(r.Header.Get("Range"))
	if !strings.HasPrefix(value, "bytes=") || strings.Contains(value, ",") {
		return ""
	}
	return value
}

func (s *apiServer) writeAudioFailure(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, storage.ErrRangeNotSatisfiable) {
		w.Header().Set("Accept-Ranges", "bytes")
		s.writeError(w, r, http.StatusRequestedRangeNotSatisfiable, "requested range not satisfiable")
		return
	}
	s.writeFailure(w, r, err)
}

// streamAudio copies the object to the client, answering 206 when the bucket
// served a partial range. Headers are committed before the first byte, so
// later failures can only be logged.
func (s *apiServer) streamAudio(w http.ResponseWriter, r *http.Request, id string, obj *storage.Object) {
	defer obj.Body.Close()

	contentType := obj.Info.ContentType
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	header := w.Header()
	header.Set("Content-Type", contentType)
	if obj.Info.Size > 0 {
		header.Set("Content-Length", strconv.FormatInt(obj.Info.Size, 10))
	}
	header.Set("Content-Disposition", fmt.Sprintf("inline; filename=\"noticiero-%s.mp3\"", id))
	header.Set("Cache-Control", "public, max-age=31536000")
	header.Set("Accept-Ranges", "bytes")
	status := http.StatusOK
	if obj.ContentRange != "" {
		header.Set("Content-Range", obj.ContentRange)
		status = http.StatusPartialContent
	}
	w.WriteHeader(status)

	written, err := io.Copy(w, obj.Body)
	if err != nil {
		logger := logging.WithContext(services.WithNoticieroID(r.Context(), id), s.logger)
		if r.Context().Err() != nil {
			logger.Info("audio stream closed by client", logging.Int("bytes", int(written)))
			return
		}
		logging.WarnWithContext(logger, "audio stream interrupted", "audio_stream_failed",
			logging.Error(err),
			logging.Int("bytes", int(written)),
			logging.String(logging.FieldImpact, "client received a truncated file"),
		)
	}
}

func (s *apiServer) handleAudioURL(w http.ResponseWriter, r *http.Request) {
	var ttl time.Duration
	if value := strings.TrimSpace(r.URL.Query().Get("ttl")); value != "" {
		seconds, err := strconv.Atoi(value)
		if err != nil || seconds <= 0 {
			s.writeError(w, r, http.StatusBadRequest, "ttl must be a positive number of seconds")
			return
		}
		ttl = time.Duration(seconds) * time.Second
	}
	url, err := s.orch.AudioURL(r.Context(), r.PathValue("id"), ttl)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{Success: true, Data: map[string]string{"url": url}})
}

func (s *apiServer) handleAudioInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.orch.AudioInfo(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{Success: true, Data: info})
}

type feedRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (s *apiServer) handleListFeeds(w http.ResponseWriter, r *http.Request) {
	activeOnly := strings.EqualFold(r.URL.Query().Get("active"), "true")
	sources, err := s.store.ListFeedSources(r.Context(), activeOnly)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if sources == nil {
		sources = []*store.FeedSource{}
	}
	s.writeJSON(w, http.StatusOK, envelope{Success: true, Data: sources})
}

func (s *apiServer) handleAddFeed(w http.ResponseWriter, r *http.Request) {
	var req feedRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	src, err := s.store.AddFeedSource(r.Context(), req.Name, req.URL)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, envelope{Success: true, Data: src})
}

func (s *apiServer) handleFeedActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		src, err := s.store.SetFeedActive(r.Context(), r.PathValue("id"), active)
		if err != nil {
			s.writeFailure(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, envelope{Success: true, Data: src})
	}
}

func (s *apiServer) handleDeleteFeed(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteFeedSource(r.Context(), r.PathValue("id")); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{Success: true, Message: "feed source deleted"})
}

func (s *apiServer) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.store.Settings(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{Success: true, Data: cfg})
}

func (s *apiServer) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req store.BroadcastConfig
	if !s.decodeBody(w, r, &req) {
		return
	}
	cfg, err := s.store.UpdateSettings(r.Context(), req)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{Success: true, Data: cfg})
}

type dependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

type daemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	DatabasePath string             `json:"databasePath"`
	DatabaseOK   bool               `json:"databaseOk"`
	LockFilePath string             `json:"lockFilePath"`
	Pipeline     pipeline.Status    `json:"pipeline"`
	Dependencies []dependencyStatus `json:"dependencies"`
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.daemon.Status(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	deps := make([]dependencyStatus, len(status.Dependencies))
	for i, dep := range status.Dependencies {
		deps[i] = dependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		}
	}
	s.writeJSON(w, http.StatusOK, envelope{Success: true, Data: daemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		DatabasePath: status.DatabasePath,
		DatabaseOK:   status.DatabaseOK,
		LockFilePath: status.LockFilePath,
		Pipeline:     status.Pipeline,
		Dependencies: deps,
	}})
}

func (s *apiServer) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// writeFailure maps err onto a status code. Server-side failures are logged
// with the request correlation id.
func (s *apiServer) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := services.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logging.ErrorWithContext(logging.WithContext(r.Context(), s.logger), "request failed", "api_request_failed",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Error(err),
		)
	}
	s.writeError(w, r, status, err.Error())
}

func (s *apiServer) writeError(w http.ResponseWriter, _ *http.Request, status int, message string) {
	s.writeJSON(w, status, envelope{Success: false, Error: message})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}
