package models

import (
	"path/filepath"
	"strings"
	"time"
)

// FileKind classifies a project file's content at ingestion time.
type FileKind string

const (
	KindText   FileKind = "text"
	KindBinary FileKind = "binary"
)

// Project is a named unit of work. Server-side projects are backed by
// a workspace subdirectory (ID is the directory name); store-backed
// projects carry a generated ID and a flat file list.
type Project struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	Path              string        `json:"path,omitempty"`
	Files             []ProjectFile `json:"files,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	MostRecentSession *time.Time    `json:"most_recent_session,omitempty"`
}

// ProjectFile is one file in a store-backed project. Path is relative
// to the project root and unique within the project; it is the key for
// update-or-insert. Size is recomputed on every content update.
type ProjectFile struct {
	Path    string   `json:"path"`
	Content []byte   `json:"content"`
	Kind    FileKind `json:"kind"`
	Size    int64    `json:"size"`
}

// Session records one chat session against a project. Only its
// existence matters here: the newest StartedAt per project surfaces as
// the project's MostRecentSession.
type Session struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	StartedAt time.Time `json:"started_at"`
}

// textExtensions lists extensions treated as text at ingestion.
// Everything else is stored as an opaque binary blob.
var textExtensions = map[string]bool{
	".c": true, ".cc": true, ".cfg": true, ".conf": true, ".cpp": true,
	".css": true, ".csv": true, ".go": true, ".h": true, ".hpp": true,
	".html": true, ".ini": true, ".java": true, ".js": true, ".json": true,
	".jsx": true, ".md": true, ".mjs": true, ".mod": true, ".py": true,
	".rb": true, ".rs": true, ".sh": true, ".sql": true, ".sum": true,
	".svg": true, ".toml": true, ".ts": true, ".tsx": true, ".txt": true,
	".xml": true, ".yaml": true, ".yml": true,
}

// SniffKind decides text vs binary from the file extension. The
// decision is made once, when the file enters a project, and stored
// with the record.
func SniffKind(path string) FileKind {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		// Extensionless files (Makefile, LICENSE, dotfiles) are
		// overwhelmingly text in a code workspace.
		return KindText
	}
	if textExtensions[ext] {
		return KindText
	}
	return KindBinary
}
