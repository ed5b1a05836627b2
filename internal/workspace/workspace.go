// Package workspace serves and mutates files under one root directory.
// Every path accepted from a client is relative to the root; anything
// resolving outside the root is rejected before touching the disk.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/brewer-michael/claudia-web/pkg/models"
)

var (
	// ErrInvalidProjectID rejects IDs that are not plain visible
	// directory names.
	ErrInvalidProjectID = errors.New("invalid project id")

	// ErrProjectExists rejects creating a project whose directory is
	// already taken.
	ErrProjectExists = errors.New("project already exists")
)

const (
	// DefaultMaxFileSize caps read and write payloads.
	DefaultMaxFileSize = 10 * 1024 * 1024

	// DefaultExecTimeout bounds shell command runtime.
	DefaultExecTimeout = 30 * time.Second
)

// EscapeError reports a path that resolves outside the workspace root.
type EscapeError struct {
	Path string
}

func (e *EscapeError) Error() string {
	return fmt.Sprintf("path escapes workspace: %s", e.Path)
}

// TooLargeError reports a file exceeding the configured size limit.
type TooLargeError struct {
	Path  string
	Size  int64
	Limit int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("file too large: %s is %d bytes, limit %d", e.Path, e.Size, e.Limit)
}

// Config holds workspace service settings.
type Config struct {
	Root        string
	MaxFileSize int64
	ExecTimeout time.Duration
}

// Service is the filesystem service behind the API. A project is a
// visible subdirectory of the root; its ID is the directory name.
type Service struct {
	root        string
	maxFileSize int64
	execTimeout time.Duration
}

// New validates the root directory and returns a service over it.
func New(cfg Config) (*Service, error) {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace root %s is not a directory", root)
	}

	s := &Service{
		root:        root,
		maxFileSize: cfg.MaxFileSize,
		execTimeout: cfg.ExecTimeout,
	}
	if s.maxFileSize <= 0 {
		s.maxFileSize = DefaultMaxFileSize
	}
	if s.execTimeout <= 0 {
		s.execTimeout = DefaultExecTimeout
	}
	return s, nil
}

// Root returns the absolute workspace root.
func (s *Service) Root() string {
	return s.root
}

// resolve maps a client-supplied relative path onto the root.
func (s *Service) resolve(rel string) (string, error) {
	rel = strings.TrimPrefix(rel, "/")
	full := filepath.Join(s.root, filepath.FromSlash(rel))

	r, err := filepath.Rel(s.root, full)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", &EscapeError{Path: rel}
	}
	return full, nil
}

// List returns the immediate children of a directory, directories
// first, each group sorted by name. Children of returned entries stay
// unloaded; callers fetch deeper levels on demand.
func (s *Service) List(rel string) ([]*models.DirectoryEntry, error) {
	full, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}

	dirEntries, err := os.ReadDir(full)
	if err != nil {
		return nil, err
	}

	relSlash := strings.Trim(path.Clean("/"+filepath.ToSlash(rel)), "/")
	entries := make([]*models.DirectoryEntry, 0, len(dirEntries))
	for _, de := range dirEntries {
		info, err := de.Info()
		if err != nil {
			continue
		}
		childPath := de.Name()
		if relSlash != "" {
			childPath = relSlash + "/" + de.Name()
		}
		entry := &models.DirectoryEntry{
			Name:        de.Name(),
			Path:        childPath,
			IsDirectory: de.IsDir(),
			Modified:    info.ModTime(),
		}
		if !de.IsDir() {
			entry.Size = info.Size()
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.IsDirectory != b.IsDirectory {
			return a.IsDirectory
		}
		la, lb := strings.ToLower(a.Name), strings.ToLower(b.Name)
		if la != lb {
			return la < lb
		}
		return a.Name < b.Name
	})
	return entries, nil
}

// Read returns a file's content. Directories and files over the size
// limit are refused.
func (s *Service) Read(rel string) ([]byte, error) {
	full, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(full)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", rel)
	}
	if info.Size() > s.maxFileSize {
		return nil, &TooLargeError{Path: rel, Size: info.Size(), Limit: s.maxFileSize}
	}
	return os.ReadFile(full)
}

// Write stores a file atomically: content lands in a temp file in the
// target directory and is renamed over the destination, so readers
// never observe a half-written file. Missing parent directories are
// created.
func (s *Service) Write(rel string, content []byte) error {
	if int64(len(content)) > s.maxFileSize {
		return &TooLargeError{Path: rel, Size: int64(len(content)), Limit: s.maxFileSize}
	}

	full, err := s.resolve(rel)
	if err != nil {
		return err
	}
	if full == s.root {
		return &EscapeError{Path: rel}
	}

	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create parent: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".claudia-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp: %w", err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// Delete removes a file or directory tree. The root itself cannot be
// deleted.
func (s *Service) Delete(rel string) error {
	full, err := s.resolve(rel)
	if err != nil {
		return err
	}
	if full == s.root {
		return &EscapeError{Path: rel}
	}

	info, err := os.Stat(full)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return os.RemoveAll(full)
	}
	return os.Remove(full)
}

// validateProjectID accepts only a plain visible directory name.
func validateProjectID(id string) error {
	if id == "" || id == "." || id == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidProjectID, id)
	}
	if strings.ContainsAny(id, "/\\") || strings.HasPrefix(id, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidProjectID, id)
	}
	return nil
}

// JoinProject resolves a project-relative path against the project's
// directory and refuses anything that climbs out of it. The result is
// a workspace-relative path.
func JoinProject(dir, rel string) (string, error) {
	joined := path.Join(dir, strings.TrimPrefix(rel, "/"))
	if joined != dir && !strings.HasPrefix(joined, dir+"/") {
		return "", &EscapeError{Path: rel}
	}
	return joined, nil
}

// ListProjects reports every visible subdirectory of the root as a
// project, sorted by name. The directory name doubles as the ID.
func (s *Service) ListProjects() ([]*models.Project, error) {
	dirEntries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}

	var projects []*models.Project
	for _, de := range dirEntries {
		if !de.IsDir() || strings.HasPrefix(de.Name(), ".") {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		projects = append(projects, &models.Project{
			ID:        de.Name(),
			Name:      de.Name(),
			Path:      filepath.Join(s.root, de.Name()),
			CreatedAt: info.ModTime(),
		})
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].ID < projects[j].ID })
	return projects, nil
}

// CreateProject makes a new project directory. The ID is derived from
// the name: lowercased, spaces become dashes, anything else unsafe is
// dropped.
func (s *Service) CreateProject(name string) (*models.Project, error) {
	id := slugify(name)
	if err := validateProjectID(id); err != nil {
		return nil, fmt.Errorf("project name %q: %w", name, err)
	}

	full := filepath.Join(s.root, id)
	if _, err := os.Stat(full); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrProjectExists, id)
	}
	if err := os.Mkdir(full, 0o755); err != nil {
		return nil, fmt.Errorf("create project dir: %w", err)
	}

	return &models.Project{
		ID:        id,
		Name:      name,
		Path:      full,
		CreatedAt: time.Now(),
	}, nil
}

// DeleteProject removes a project directory and everything under it.
func (s *Service) DeleteProject(id string) error {
	if err := validateProjectID(id); err != nil {
		return err
	}

	full := filepath.Join(s.root, id)
	info, err := os.Stat(full)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("project %s is not a directory", id)
	}
	return os.RemoveAll(full)
}

// ProjectDir validates the ID and returns the project's relative path
// for use as a listing or file prefix.
func (s *Service) ProjectDir(id string) (string, error) {
	if err := validateProjectID(id); err != nil {
		return "", err
	}
	full := filepath.Join(s.root, id)
	info, err := os.Stat(full)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("project %s is not a directory", id)
	}
	return id, nil
}

func slugify(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
