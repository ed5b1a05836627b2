package projectstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/brewer-michael/claudia-web/pkg/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS projects (
	id                  TEXT PRIMARY KEY,
	name                TEXT NOT NULL,
	created_at          TIMESTAMP NOT NULL,
	most_recent_session TIMESTAMP
);

CREATE TABLE IF NOT EXISTS project_files (
	project_id TEXT NOT NULL,
	path       TEXT NOT NULL,
	content    BLOB NOT NULL,
	kind       TEXT NOT NULL,
	size       INTEGER NOT NULL,
	seq        INTEGER NOT NULL,
	PRIMARY KEY (project_id, path)
);

CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	started_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_project ON sessions(project_id);
`

// SQLiteStore is the default store: a single-file database, the
// local-first analogue of the browser database the web client uses.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) a sqlite-backed store at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite store path is empty")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// The driver serializes access per connection; a single connection
	// avoids table-lock errors under concurrent readers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateProject(ctx context.Context, name string) (*models.Project, error) {
	project := &models.Project{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (id, name, created_at) VALUES (?, ?, ?)`,
		project.ID, project.Name, project.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}
	return project, nil
}

func (s *SQLiteStore) GetProject(ctx context.Context, id string) (*models.Project, error) {
	project := &models.Project{}
	var recent sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at, most_recent_session FROM projects WHERE id = ?`, id).
		Scan(&project.ID, &project.Name, &project.CreatedAt, &recent)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: project %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query project: %w", err)
	}
	if recent.Valid {
		t := recent.Time
		project.MostRecentSession = &t
	}

	files, err := s.ListFiles(ctx, id)
	if err != nil {
		return nil, err
	}
	project.Files = files
	return project, nil
}

func (s *SQLiteStore) ListProjects(ctx context.Context) ([]*models.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at, most_recent_session FROM projects ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		p := &models.Project{}
		var recent sql.NullTime
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt, &recent); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		if recent.Valid {
			t := recent.Time
			p.MostRecentSession = &t
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (s *SQLiteStore) DeleteProject(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: project %s", ErrNotFound, id)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM project_files WHERE project_id = ?`, id); err != nil {
		return fmt.Errorf("delete files: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE project_id = ?`, id); err != nil {
		return fmt.Errorf("delete sessions: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) PutFile(ctx context.Context, projectID, path string, content []byte) (*models.ProjectFile, error) {
	if err := s.projectExists(ctx, projectID); err != nil {
		return nil, err
	}

	file := &models.ProjectFile{
		Path:    path,
		Content: content,
		Kind:    models.SniffKind(path),
		Size:    int64(len(content)),
	}

	// Replace-by-path: a conflicting path keeps its kind and listing
	// position, only content and size change.
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO project_files (project_id, path, content, kind, size, seq)
		 VALUES (?, ?, ?, ?, ?,
		         (SELECT COALESCE(MAX(seq), 0) + 1 FROM project_files WHERE project_id = ?))
		 ON CONFLICT (project_id, path) DO UPDATE SET
			content = excluded.content,
			size = excluded.size`,
		projectID, file.Path, file.Content, string(file.Kind), file.Size, projectID)
	if err != nil {
		return nil, fmt.Errorf("put file: %w", err)
	}

	// Report the stored kind, which on update predates this write.
	var kind string
	if err := s.db.QueryRowContext(ctx,
		`SELECT kind FROM project_files WHERE project_id = ? AND path = ?`,
		projectID, path).Scan(&kind); err == nil {
		file.Kind = models.FileKind(kind)
	}
	return file, nil
}

func (s *SQLiteStore) GetFile(ctx context.Context, projectID, path string) (*models.ProjectFile, error) {
	file := &models.ProjectFile{}
	var kind string
	err := s.db.QueryRowContext(ctx,
		`SELECT path, content, kind, size FROM project_files WHERE project_id = ? AND path = ?`,
		projectID, path).
		Scan(&file.Path, &file.Content, &kind, &file.Size)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s in project %s", ErrNotFound, path, projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("query file: %w", err)
	}
	file.Kind = models.FileKind(kind)
	return file, nil
}

func (s *SQLiteStore) ListFiles(ctx context.Context, projectID string) ([]models.ProjectFile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, content, kind, size FROM project_files WHERE project_id = ? ORDER BY seq`,
		projectID)
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	defer rows.Close()

	var files []models.ProjectFile
	for rows.Next() {
		var f models.ProjectFile
		var kind string
		if err := rows.Scan(&f.Path, &f.Content, &kind, &f.Size); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		f.Kind = models.FileKind(kind)
		files = append(files, f)
	}
	return files, rows.Err()
}

func (s *SQLiteStore) RecordSession(ctx context.Context, projectID string) (*models.Session, error) {
	if err := s.projectExists(ctx, projectID); err != nil {
		return nil, err
	}

	session := &models.Session{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		StartedAt: time.Now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (id, project_id, started_at) VALUES (?, ?, ?)`,
		session.ID, session.ProjectID, session.StartedAt); err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE projects SET most_recent_session = ? WHERE id = ?`,
		session.StartedAt, projectID); err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *SQLiteStore) projectExists(ctx context.Context, id string) error {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM projects WHERE id = ?)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("query project: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: project %s", ErrNotFound, id)
	}
	return nil
}
