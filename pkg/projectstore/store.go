// Package projectstore persists projects and their files in a local
// durable database. It is the standalone counterpart to the workspace
// server: a client that cannot reach a server keeps projects here, and
// the two sides are never reconciled.
//
// Callers issue at most one write per project id at a time by
// convention. Concurrent writers to the same project are not guarded
// against; last write wins at the statement level.
package projectstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/brewer-michael/claudia-web/pkg/models"
)

// ErrNotFound is returned when a project or file does not exist.
var ErrNotFound = errors.New("projectstore: not found")

// Store is durable project CRUD keyed by project id, with
// replace-by-path file updates inside each project. There is no
// per-file delete: the local store only ever drops whole projects.
type Store interface {
	// CreateProject creates an empty project with a generated id.
	CreateProject(ctx context.Context, name string) (*models.Project, error)

	// GetProject returns a project with its full file list, or
	// ErrNotFound.
	GetProject(ctx context.Context, id string) (*models.Project, error)

	// ListProjects returns all project summaries (no file contents)
	// ordered by creation time.
	ListProjects(ctx context.Context) ([]*models.Project, error)

	// DeleteProject removes a project, its files, and its sessions.
	DeleteProject(ctx context.Context, id string) error

	// PutFile stores content at a project-relative path. An existing
	// path has its content and size overwritten in place; the file's
	// kind and its position in the listing are fixed at first insert.
	// A new path is appended to the end of the file list.
	PutFile(ctx context.Context, projectID, path string, content []byte) (*models.ProjectFile, error)

	// GetFile returns one file record, or ErrNotFound.
	GetFile(ctx context.Context, projectID, path string) (*models.ProjectFile, error)

	// ListFiles returns a project's files in insertion order.
	ListFiles(ctx context.Context, projectID string) ([]models.ProjectFile, error)

	// RecordSession notes a new session against a project and bumps
	// its most-recent-session timestamp.
	RecordSession(ctx context.Context, projectID string) (*models.Session, error)

	Close() error
}

// Config selects and configures a store driver.
type Config struct {
	// Driver is "sqlite" (default) or "postgres".
	Driver string
	// DSN is the database path for sqlite or the connection URL for
	// postgres.
	DSN string
}

// Open creates a store from config.
func Open(cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return OpenSQLite(cfg.DSN)
	case "postgres":
		return OpenPostgres(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown store driver: %s", cfg.Driver)
	}
}
