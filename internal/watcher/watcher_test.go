package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/brewer-michael/claudia-web/internal/events"
	"github.com/brewer-michael/claudia-web/pkg/protocol"
)

func startTestWatcher(t *testing.T) (string, chan protocol.ChangeEvent) {
	t.Helper()
	root := t.TempDir()
	broadcaster := events.NewBroadcaster()

	w, err := New(root, broadcaster, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	w.Start()
	t.Cleanup(func() { w.Close() })

	ch := broadcaster.Subscribe()
	t.Cleanup(func() { broadcaster.Unsubscribe(ch) })
	return root, ch
}

func waitForPath(t *testing.T, ch chan protocol.ChangeEvent, path string) protocol.ChangeEvent {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev.Path == path {
				return ev
			}
		case <-deadline:
			t.Fatalf("no event for %s", path)
		}
	}
}

func TestWatcherPublishesFileCreation(t *testing.T) {
	root, ch := startTestWatcher(t)

	if err := os.WriteFile(filepath.Join(root, "note.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	ev := waitForPath(t, ch, "note.txt")
	if ev.Op != protocol.OpCreate && ev.Op != protocol.OpWrite {
		t.Errorf("op = %s", ev.Op)
	}
	if ev.IsDir {
		t.Error("file event flagged as directory")
	}
	if ev.Timestamp == 0 {
		t.Error("expected timestamp")
	}
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	root, ch := startTestWatcher(t)

	sub := filepath.Join(root, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	ev := waitForPath(t, ch, "sub")
	if !ev.IsDir {
		t.Error("directory event not flagged as directory")
	}

	// The new directory is registered as soon as its create event
	// arrives, so writes inside it are observed.
	time.Sleep(200 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(sub, "inner.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitForPath(t, ch, "sub/inner.txt")
}

func TestWatcherReportsRemoval(t *testing.T) {
	root, ch := startTestWatcher(t)

	path := filepath.Join(root, "gone.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitForPath(t, ch, "gone.txt")

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	ev := waitForPath(t, ch, "gone.txt")
	if ev.Op != protocol.OpRemove {
		t.Errorf("op = %s, want remove", ev.Op)
	}
}

func TestMapOpPriority(t *testing.T) {
	// A path created and then removed inside one debounce window
	// surfaces as a removal.
	tests := []struct {
		name string
		op   fsnotify.Op
		want string
	}{
		{"remove wins", fsnotify.Remove | fsnotify.Create, protocol.OpRemove},
		{"rename over write", fsnotify.Rename | fsnotify.Write, protocol.OpRename},
		{"create alone", fsnotify.Create, protocol.OpCreate},
		{"write alone", fsnotify.Write, protocol.OpWrite},
	}
	for _, tt := range tests {
		if got := mapOp(tt.op); got != tt.want {
			t.Errorf("%s: got %s, want %s", tt.name, got, tt.want)
		}
	}
}
