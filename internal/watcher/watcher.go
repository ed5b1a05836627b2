// Package watcher turns filesystem notifications into change events.
package watcher

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/brewer-michael/claudia-web/internal/events"
	"github.com/brewer-michael/claudia-web/internal/logging"
	"github.com/brewer-michael/claudia-web/pkg/protocol"
)

var watchSkipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"__pycache__":  true,
}

// Watcher watches the workspace tree and publishes debounced change
// events to a broadcaster. Events for the same path inside one debounce
// window collapse into a single published event.
type Watcher struct {
	root        string
	broadcaster *events.Broadcaster
	fsw         *fsnotify.Watcher
	debounce    time.Duration
	done        chan struct{}
}

// New creates a watcher over root. Every existing directory is
// registered up front; directories created later are added as their
// create events arrive.
func New(root string, broadcaster *events.Broadcaster, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:        root,
		broadcaster: broadcaster,
		fsw:         fsw,
		debounce:    debounce,
		done:        make(chan struct{}),
	}

	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if watchSkipDirs[filepath.Base(path)] && path != root {
				return filepath.SkipDir
			}
			return fsw.Add(path)
		}
		return nil
	})
	if err != nil {
		fsw.Close()
		return nil, err
	}

	return w, nil
}

// Start begins delivering events. It returns immediately.
func (w *Watcher) Start() {
	go w.loop()
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}

func (w *Watcher) loop() {
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	pending := make(map[string]fsnotify.Op)

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op == fsnotify.Chmod {
				continue
			}

			// New directories must be registered before their
			// contents start changing.
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !watchSkipDirs[filepath.Base(event.Name)] {
						if err := w.fsw.Add(event.Name); err != nil {
							logging.Warn("watch new directory", zap.String("path", event.Name), zap.Error(err))
						}
					}
				}
			}

			pending[event.Name] |= event.Op
			timer.Stop()
			timer.Reset(w.debounce)

		case <-timer.C:
			for name, op := range pending {
				w.publish(name, op)
			}
			pending = make(map[string]fsnotify.Op)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.Warn("watcher error", zap.Error(err))

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) publish(name string, op fsnotify.Op) {
	rel, err := filepath.Rel(w.root, name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return
	}

	isDir := false
	if info, err := os.Stat(name); err == nil {
		isDir = info.IsDir()
	}

	w.broadcaster.Publish(protocol.ChangeEvent{
		Op:    mapOp(op),
		Path:  filepath.ToSlash(rel),
		IsDir: isDir,
	})
}

// mapOp collapses an accumulated fsnotify op mask into one wire op.
// Removal wins over every other change seen in the same window.
func mapOp(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Remove):
		return protocol.OpRemove
	case op.Has(fsnotify.Rename):
		return protocol.OpRename
	case op.Has(fsnotify.Create):
		return protocol.OpCreate
	default:
		return protocol.OpWrite
	}
}
