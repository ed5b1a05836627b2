// Package api provides the HTTP server and handlers.
package api

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/brewer-michael/claudia-web/internal/config"
	"github.com/brewer-michael/claudia-web/internal/events"
	"github.com/brewer-michael/claudia-web/internal/logging"
	"github.com/brewer-michael/claudia-web/internal/metrics"
	"github.com/brewer-michael/claudia-web/internal/workspace"
	"github.com/brewer-michael/claudia-web/pkg/protocol"
)

// Pool gzip writers to reduce allocations on listing endpoints.
var gzipPool = sync.Pool{
	New: func() any { return gzip.NewWriter(nil) },
}

// Server is the HTTP server.
type Server struct {
	workspace   *workspace.Service
	broadcaster *events.Broadcaster
	config      *config.Config
	startedAt   time.Time
}

// NewServer creates a new server.
func NewServer(ws *workspace.Service, broadcaster *events.Broadcaster, cfg *config.Config) *Server {
	return &Server{
		workspace:   ws,
		broadcaster: broadcaster,
		config:      cfg,
		startedAt:   time.Now(),
	}
}

// Handler returns the HTTP handler with logging and metrics middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	// Project endpoints
	mux.HandleFunc("GET /workspace/projects", s.handleListProjects)
	mux.HandleFunc("POST /workspace/projects", s.handleCreateProject)
	mux.HandleFunc("DELETE /workspace/projects/{id}", s.handleDeleteProject)
	mux.HandleFunc("GET /workspace/projects/{id}/files", s.handleProjectListing)
	mux.HandleFunc("POST /workspace/projects/{id}/files/content", s.handleProjectRead)
	mux.HandleFunc("PUT /workspace/projects/{id}/files/content", s.handleProjectWrite)
	mux.HandleFunc("DELETE /workspace/projects/{id}/files", s.handleProjectDelete)
	mux.HandleFunc("POST /workspace/projects/{id}/execute", s.handleExecute)

	// Legacy workspace endpoints, paths relative to the root
	mux.HandleFunc("GET /files", s.handleWorkspaceListing)
	mux.HandleFunc("POST /files/read", s.handleWorkspaceRead)
	mux.HandleFunc("POST /files/write", s.handleWorkspaceWrite)

	// SSE endpoint
	mux.HandleFunc("GET /events", s.handleEvents)

	return metrics.Middleware(logging.Middleware(mux))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, protocol.HealthResponse{
		Status:        "ok",
		WorkspaceDir:  s.workspace.Root(),
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		Watching:      s.config.Watch,
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.sendError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := s.broadcaster.Subscribe()
	defer s.broadcaster.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			data, err := events.MarshalEvent(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Op, data)
			flusher.Flush()
		}
	}
}

func (s *Server) sendJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) sendError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(protocol.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// fail maps service errors onto HTTP statuses.
func (s *Server) fail(w http.ResponseWriter, err error) {
	var escape *workspace.EscapeError
	var tooLarge *workspace.TooLargeError
	switch {
	case errors.As(err, &escape):
		s.sendError(w, http.StatusBadRequest, escape.Error())
	case errors.Is(err, workspace.ErrInvalidProjectID):
		s.sendError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &tooLarge):
		s.sendError(w, http.StatusRequestEntityTooLarge, tooLarge.Error())
	case errors.Is(err, fs.ErrNotExist):
		s.sendError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, workspace.ErrProjectExists):
		s.sendError(w, http.StatusConflict, err.Error())
	case errors.Is(err, workspace.ErrExecTimeout):
		s.sendError(w, http.StatusRequestTimeout, err.Error())
	default:
		s.sendError(w, http.StatusInternalServerError, err.Error())
	}
}

// decodeJSON reads a JSON request body with a size cap slightly above
// the file size limit, so oversized writes fail as 413 rather than as
// a JSON syntax error.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxFileSize+64*1024)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.sendError(w, http.StatusRequestEntityTooLarge, "request body too large")
		} else {
			s.sendError(w, http.StatusBadRequest, "invalid request body")
		}
		return false
	}
	return true
}

func acceptsGzip(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept-Encoding"), "gzip")
}

// sendListing writes a listing response, gzipped when the client asks
// for it.
func (s *Server) sendListing(w http.ResponseWriter, r *http.Request, resp protocol.ListFilesResponse) {
	w.Header().Set("Content-Type", "application/json")
	if acceptsGzip(r) {
		w.Header().Set("Content-Encoding", "gzip")
		gw := gzipPool.Get().(*gzip.Writer)
		gw.Reset(w)
		json.NewEncoder(gw).Encode(resp)
		gw.Close()
		gzipPool.Put(gw)
		return
	}
	json.NewEncoder(w).Encode(resp)
}
