package api

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/brewer-michael/claudia-web/internal/logging"
	"github.com/brewer-michael/claudia-web/pkg/protocol"
)

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.workspace.ListProjects()
	if err != nil {
		s.fail(w, err)
		return
	}

	summaries := make([]protocol.ProjectSummary, 0, len(projects))
	for _, p := range projects {
		summaries = append(summaries, protocol.ProjectSummary{
			ID:                p.ID,
			Name:              p.Name,
			Path:              p.Path,
			CreatedAt:         p.CreatedAt,
			MostRecentSession: p.MostRecentSession,
		})
	}
	s.sendJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req protocol.CreateProjectRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		s.sendError(w, http.StatusBadRequest, "project name required")
		return
	}

	project, err := s.workspace.CreateProject(req.Name)
	if err != nil {
		s.fail(w, err)
		return
	}

	logging.Info("project created",
		zap.String("id", project.ID),
		zap.String("name", project.Name),
	)
	s.sendJSON(w, http.StatusCreated, protocol.ProjectSummary{
		ID:        project.ID,
		Name:      project.Name,
		Path:      project.Path,
		CreatedAt: project.CreatedAt,
	})
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.workspace.DeleteProject(id); err != nil {
		s.fail(w, err)
		return
	}

	logging.Info("project deleted", zap.String("id", id))
	s.sendJSON(w, http.StatusOK, protocol.SuccessResponse{Success: true})
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req protocol.ExecuteRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Command) == "" {
		s.sendError(w, http.StatusBadRequest, "command required")
		return
	}

	result, err := s.workspace.Execute(r.Context(), id, req.Command)
	if err != nil {
		s.fail(w, err)
		return
	}

	// The exit code travels out of band so the body can stay the raw
	// terminal output.
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Exit-Code", strconv.Itoa(result.ExitCode))
	w.WriteHeader(http.StatusOK)
	w.Write(result.Output)
}
