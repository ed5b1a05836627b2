// Package models contains shared data types used by the server, the
// client library, and the project store.
package models

import "time"

// DirectoryEntry represents a file or directory in a workspace listing.
//
// Path is the entry's identity: it is unique among siblings and never
// changes once the node exists. Children distinguishes "never fetched"
// (nil) from "fetched and empty" (non-nil, zero length); only
// directories ever carry a non-nil Children slice, and a listing is
// attached whole or not at all. Expanded is a rendering hint only;
// the authoritative expansion state lives in the explorer's
// expanded-path set.
type DirectoryEntry struct {
	Name        string            `json:"name"`
	Path        string            `json:"path"`
	IsDirectory bool              `json:"is_directory"`
	Size        int64             `json:"size"`
	Modified    time.Time         `json:"modified"`
	Children    []*DirectoryEntry `json:"children,omitempty"`
	Expanded    bool              `json:"expanded,omitempty"`
}

// HasChildren reports whether a child listing has been attached,
// including an empty one.
func (e *DirectoryEntry) HasChildren() bool {
	return e.Children != nil
}
