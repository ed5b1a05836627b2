package api

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/brewer-michael/claudia-web/internal/metrics"
	"github.com/brewer-michael/claudia-web/internal/workspace"
	"github.com/brewer-michael/claudia-web/pkg/models"
	"github.com/brewer-michael/claudia-web/pkg/protocol"
)

// handleProjectListing lists one directory level inside a project.
// Paths in and out are relative to the project root, so a client never
// sees or addresses anything beyond its project directory.
func (s *Server) handleProjectListing(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	dir, err := s.workspace.ProjectDir(r.PathValue("id"))
	if err != nil {
		s.fail(w, err)
		return
	}

	rel := r.URL.Query().Get("path")
	joined, err := workspace.JoinProject(dir, rel)
	if err != nil {
		s.fail(w, err)
		return
	}

	entries, err := s.workspace.List(joined)
	if err != nil {
		s.fail(w, err)
		return
	}
	for _, e := range entries {
		e.Path = strings.TrimPrefix(e.Path, dir+"/")
	}

	metrics.RecordListing("project", time.Since(start))
	s.sendListing(w, r, protocol.ListFilesResponse{Path: rel, Entries: entries})
}

func (s *Server) handleProjectRead(w http.ResponseWriter, r *http.Request) {
	dir, err := s.workspace.ProjectDir(r.PathValue("id"))
	if err != nil {
		s.fail(w, err)
		return
	}

	var req protocol.ReadFileRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.Path == "" {
		s.sendError(w, http.StatusBadRequest, "file path required")
		return
	}

	joined, err := workspace.JoinProject(dir, req.Path)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.serveFile(w, joined)
}

func (s *Server) handleProjectWrite(w http.ResponseWriter, r *http.Request) {
	dir, err := s.workspace.ProjectDir(r.PathValue("id"))
	if err != nil {
		s.fail(w, err)
		return
	}

	var req protocol.WriteFileRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.Path == "" {
		s.sendError(w, http.StatusBadRequest, "file path required")
		return
	}

	joined, err := workspace.JoinProject(dir, req.Path)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.storeFile(w, joined, []byte(req.Content))
}

func (s *Server) handleProjectDelete(w http.ResponseWriter, r *http.Request) {
	dir, err := s.workspace.ProjectDir(r.PathValue("id"))
	if err != nil {
		s.fail(w, err)
		return
	}

	rel := r.URL.Query().Get("path")
	if rel == "" {
		s.sendError(w, http.StatusBadRequest, "file path required")
		return
	}

	joined, err := workspace.JoinProject(dir, rel)
	if err != nil {
		s.fail(w, err)
		return
	}
	if err := s.workspace.Delete(joined); err != nil {
		s.fail(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, protocol.SuccessResponse{Success: true})
}

// handleWorkspaceListing is the legacy listing over the whole root.
func (s *Server) handleWorkspaceListing(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	rel := r.URL.Query().Get("path")
	entries, err := s.workspace.List(rel)
	if err != nil {
		s.fail(w, err)
		return
	}

	metrics.RecordListing("workspace", time.Since(start))
	s.sendListing(w, r, protocol.ListFilesResponse{Path: rel, Entries: entries})
}

func (s *Server) handleWorkspaceRead(w http.ResponseWriter, r *http.Request) {
	var req protocol.ReadFileRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.Path == "" {
		s.sendError(w, http.StatusBadRequest, "file path required")
		return
	}
	s.serveFile(w, req.Path)
}

func (s *Server) handleWorkspaceWrite(w http.ResponseWriter, r *http.Request) {
	var req protocol.WriteFileRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.Path == "" {
		s.sendError(w, http.StatusBadRequest, "file path required")
		return
	}
	s.storeFile(w, req.Path, []byte(req.Content))
}

// serveFile writes a file's raw content with a best-effort content type.
func (s *Server) serveFile(w http.ResponseWriter, rel string) {
	content, err := s.workspace.Read(rel)
	if err != nil {
		metrics.RecordFileRead(0, false)
		s.fail(w, err)
		return
	}
	metrics.RecordFileRead(int64(len(content)), true)

	ctype := mime.TypeByExtension(filepath.Ext(rel))
	if ctype == "" {
		if models.SniffKind(rel) == models.KindText {
			ctype = "text/plain; charset=utf-8"
		} else {
			ctype = "application/octet-stream"
		}
	}
	w.Header().Set("Content-Type", ctype)
	w.WriteHeader(http.StatusOK)
	w.Write(content)
}

func (s *Server) storeFile(w http.ResponseWriter, rel string, content []byte) {
	if err := s.workspace.Write(rel, content); err != nil {
		metrics.RecordFileWrite(0, false)
		s.fail(w, err)
		return
	}
	metrics.RecordFileWrite(int64(len(content)), true)
	s.sendJSON(w, http.StatusOK, protocol.SuccessResponse{Success: true})
}
