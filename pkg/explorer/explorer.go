// Package explorer implements the controller driving a file-tree view:
// root loading, lazy expansion, collapse, search filtering, and
// file-selection notification.
package explorer

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/brewer-michael/claudia-web/pkg/models"
	"github.com/brewer-michael/claudia-web/pkg/tree"
)

// ListingSource is the slice of the workspace client the explorer
// needs. ListFiles serves project-scoped listings; ListWorkspace is
// the legacy root-scoped listing used as the second attempt when the
// project endpoint fails.
type ListingSource interface {
	ListFiles(ctx context.Context, projectID, path string) ([]*models.DirectoryEntry, error)
	ListWorkspace(ctx context.Context, path string) ([]*models.DirectoryEntry, error)
}

// Config configures an Explorer.
type Config struct {
	Source      ListingSource
	ProjectID   string
	ProjectPath string // passed to the legacy listing fallback

	// OnFileSelect is invoked when Select lands on a file. Optional.
	OnFileSelect func(path string)
}

// Explorer owns one tree and its expansion state. The expanded-path
// set is the sole authority on what is open; the Expanded hint on tree
// nodes is for rendering only. One explorer per project view; methods
// are safe for concurrent use.
type Explorer struct {
	source       ListingSource
	projectID    string
	projectPath  string
	onFileSelect func(string)

	mu       sync.Mutex
	tree     *tree.Tree
	expanded map[string]struct{}
	query    string
	results  []tree.Match

	flight singleflight.Group
}

// New returns an explorer with an empty tree.
func New(cfg Config) *Explorer {
	return &Explorer{
		source:       cfg.Source,
		projectID:    cfg.ProjectID,
		projectPath:  cfg.ProjectPath,
		onFileSelect: cfg.OnFileSelect,
		tree:         tree.New(),
		expanded:     make(map[string]struct{}),
	}
}

// LoadRoot fetches the top-level listing and replaces the tree with
// it. The project endpoint is tried first; on failure the legacy
// workspace listing is tried once. If both fail the tree is left
// empty and the error is returned; there is no fallback to the
// project store, and the two sources are never merged.
func (e *Explorer) LoadRoot(ctx context.Context) error {
	entries, err := e.source.ListFiles(ctx, e.projectID, "")
	if err != nil {
		entries, err = e.source.ListWorkspace(ctx, e.projectPath)
		if err != nil {
			e.mu.Lock()
			e.tree.SetRoots(nil)
			e.expanded = make(map[string]struct{})
			e.refilterLocked()
			e.mu.Unlock()
			return fmt.Errorf("load root listing: %w", err)
		}
	}

	e.mu.Lock()
	e.tree.SetRoots(entries)
	e.expanded = make(map[string]struct{})
	e.refilterLocked()
	e.mu.Unlock()
	return nil
}

// Toggle flips the expansion state of a directory. Collapsing keeps
// the cached children so re-expanding is instant. Expanding fetches
// the listing only when the node has never been materialized;
// concurrent expands of the same path share one in-flight fetch, and
// a failed fetch takes the path back out of the expanded set so the
// next toggle can retry. Toggling a path that is not a directory in
// the current tree does nothing.
func (e *Explorer) Toggle(ctx context.Context, path string) error {
	e.mu.Lock()
	if _, open := e.expanded[path]; open {
		delete(e.expanded, path)
		if node := e.tree.FindByPath(path); node != nil {
			node.Expanded = false
		}
		e.mu.Unlock()
		return nil
	}

	node := e.tree.FindByPath(path)
	if node == nil || !node.IsDirectory {
		e.mu.Unlock()
		return nil
	}
	e.expanded[path] = struct{}{}
	if node.HasChildren() {
		node.Expanded = true
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	// A collapse racing this fetch does not cancel it; a re-expand
	// joins it through the same flight key.
	v, err, _ := e.flight.Do(path, func() (interface{}, error) {
		return e.source.ListFiles(ctx, e.projectID, path)
	})
	if err != nil {
		e.mu.Lock()
		delete(e.expanded, path)
		e.mu.Unlock()
		return fmt.Errorf("expand %s: %w", path, err)
	}

	e.mu.Lock()
	e.tree.GraftChildren(path, v.([]*models.DirectoryEntry))
	if _, open := e.expanded[path]; !open {
		// Collapsed while the fetch was in flight: keep the children
		// cached but render closed.
		if n := e.tree.FindByPath(path); n != nil {
			n.Expanded = false
		}
	}
	e.mu.Unlock()
	return nil
}

// Select opens a directory (same as Toggle) or reports a file
// selection to the UI without touching expansion state.
func (e *Explorer) Select(ctx context.Context, path string, isDirectory bool) error {
	if isDirectory {
		return e.Toggle(ctx, path)
	}
	if e.onFileSelect != nil {
		e.onFileSelect(path)
	}
	return nil
}

// SetSearchQuery filters the materialized tree by case-insensitive
// name substring. The empty query returns to full-tree mode. Results
// are a snapshot: directories expanded afterwards do not appear until
// the query is set again. A search never fetches; unexpanded
// subtrees stay invisible to it.
func (e *Explorer) SetSearchQuery(query string) {
	e.mu.Lock()
	e.query = query
	e.refilterLocked()
	e.mu.Unlock()
}

func (e *Explorer) refilterLocked() {
	if e.query == "" {
		e.results = nil
		return
	}
	q := strings.ToLower(e.query)
	e.results = e.tree.FlattenMatching(func(n *models.DirectoryEntry) bool {
		return strings.Contains(strings.ToLower(n.Name), q)
	})
}

// Query returns the active search query.
func (e *Explorer) Query() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.query
}

// Searching reports whether a non-empty query is active.
func (e *Explorer) Searching() bool {
	return e.Query() != ""
}

// SearchResults returns the current result snapshot, nil in full-tree
// mode.
func (e *Explorer) SearchResults() []tree.Match {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.results
}

// IsExpanded reports whether path is in the expanded set.
func (e *Explorer) IsExpanded(path string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.expanded[path]
	return ok
}

// Tree exposes the underlying tree for rendering. The explorer owns
// it; callers read it between operations and must not mutate it.
func (e *Explorer) Tree() *tree.Tree {
	return e.tree
}
