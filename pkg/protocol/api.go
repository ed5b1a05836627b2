// Package protocol defines the API request/response types.
package protocol

import (
	"time"

	"github.com/brewer-michael/claudia-web/pkg/models"
)

// ErrorResponse is returned on API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Details string `json:"details,omitempty"`
}

// ProjectSummary is one element of GET /workspace/projects.
type ProjectSummary struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Path              string     `json:"path"`
	CreatedAt         time.Time  `json:"created_at"`
	MostRecentSession *time.Time `json:"most_recent_session,omitempty"`
}

// CreateProjectRequest is the body for POST /workspace/projects.
type CreateProjectRequest struct {
	Name string `json:"name"`
}

// ListFilesResponse is returned by GET /workspace/projects/{id}/files
// and by the legacy GET /files listing.
type ListFilesResponse struct {
	Path    string                   `json:"path"`
	Entries []*models.DirectoryEntry `json:"entries"`
}

// ReadFileRequest is the body for POST /workspace/projects/{id}/files/content
// and for the legacy POST /files/read. The response body is the raw
// file text, not JSON.
type ReadFileRequest struct {
	Path string `json:"path"`
}

// WriteFileRequest is the body for PUT /workspace/projects/{id}/files/content
// and for the legacy POST /files/write.
type WriteFileRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// SuccessResponse acknowledges a write-style operation.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ExecuteRequest is the body for POST /workspace/projects/{id}/execute.
// The response body is the raw combined stdout+stderr; the process
// exit code travels in the X-Exit-Code header.
type ExecuteRequest struct {
	Command string `json:"command"`
}

// Change event operations.
const (
	OpCreate = "create"
	OpWrite  = "write"
	OpRemove = "remove"
	OpRename = "rename"
)

// ChangeEvent is one server-sent event on GET /events. Op mirrors the
// underlying filesystem notification.
type ChangeEvent struct {
	Op        string `json:"op"`
	Path      string `json:"path"`
	IsDir     bool   `json:"is_dir,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status        string `json:"status"`
	WorkspaceDir  string `json:"workspace_dir"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Watching      bool   `json:"watching"`
}
