// Package tree implements the partially materialized directory tree
// behind the file explorer.
//
// The tree holds only what has actually been fetched: directories
// start without children and get a listing grafted in when the user
// expands them. All lookups and traversals see the materialized
// portion only.
package tree

import (
	"strings"

	"github.com/brewer-michael/claudia-web/pkg/models"
)

// Match is one hit from FlattenMatching. DisplayPath is the node's own
// path when that path is rooted, otherwise the ancestor names joined
// with "/". Listings may carry server-relative paths, so the joined
// form keeps search results readable.
type Match struct {
	Node        *models.DirectoryEntry
	DisplayPath string
}

// Tree is an ordered forest of directory entries. It is a plain value
// owned by a single explorer; it does no locking of its own.
type Tree struct {
	roots []*models.DirectoryEntry
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{}
}

// Roots returns the top-level entries in listing order.
func (t *Tree) Roots() []*models.DirectoryEntry {
	return t.roots
}

// SetRoots replaces the entire tree with a new top-level listing.
// Every entry starts lazy: any children attached by the caller are
// stripped so expansion goes through GraftChildren.
func (t *Tree) SetRoots(entries []*models.DirectoryEntry) {
	for _, e := range entries {
		e.Children = nil
		e.Expanded = false
	}
	t.roots = entries
}

// GraftChildren attaches a fetched listing to the directory whose path
// equals targetPath. The listing replaces any previous children and
// each child is stripped lazy. Reports whether a graft happened: an
// absent target or a file target is a silent no-op, since the fetch
// that produced the listing may be stale by the time it lands.
func (t *Tree) GraftChildren(targetPath string, children []*models.DirectoryEntry) bool {
	node := t.FindByPath(targetPath)
	if node == nil || !node.IsDirectory {
		return false
	}
	if children == nil {
		// A completed fetch always materializes the node, even empty.
		children = []*models.DirectoryEntry{}
	}
	for _, c := range children {
		c.Children = nil
		c.Expanded = false
	}
	node.Children = children
	node.Expanded = true
	return true
}

// FindByPath resolves a path anywhere in the materialized tree
// (depth-first).
func (t *Tree) FindByPath(path string) *models.DirectoryEntry {
	for _, root := range t.roots {
		if found := findByPath(root, path); found != nil {
			return found
		}
	}
	return nil
}

func findByPath(node *models.DirectoryEntry, path string) *models.DirectoryEntry {
	if node == nil {
		return nil
	}
	if node.Path == path {
		return node
	}
	for _, child := range node.Children {
		if found := findByPath(child, path); found != nil {
			return found
		}
	}
	return nil
}

// Walk visits every materialized node in pre-order: parent before
// children, siblings in listing order. fn receives the node and its
// display path; returning false stops the walk.
func (t *Tree) Walk(fn func(node *models.DirectoryEntry, displayPath string) bool) {
	for _, root := range t.roots {
		if !walk(root, "", fn) {
			return
		}
	}
}

func walk(node *models.DirectoryEntry, prefix string, fn func(*models.DirectoryEntry, string) bool) bool {
	display := node.Path
	if !strings.HasPrefix(display, "/") {
		display = joinDisplay(prefix, node.Name)
	}
	if !fn(node, display) {
		return false
	}
	childPrefix := joinDisplay(prefix, node.Name)
	for _, child := range node.Children {
		if !walk(child, childPrefix, fn) {
			return false
		}
	}
	return true
}

func joinDisplay(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// FlattenMatching collects every materialized node for which pred
// holds, in Walk order. Unexpanded subtrees are invisible: nothing is
// fetched on behalf of a search.
func (t *Tree) FlattenMatching(pred func(*models.DirectoryEntry) bool) []Match {
	var matches []Match
	t.Walk(func(node *models.DirectoryEntry, displayPath string) bool {
		if pred(node) {
			matches = append(matches, Match{Node: node, DisplayPath: displayPath})
		}
		return true
	})
	return matches
}

// Count returns the number of materialized nodes.
func (t *Tree) Count() int {
	count := 0
	t.Walk(func(*models.DirectoryEntry, string) bool {
		count++
		return true
	})
	return count
}
