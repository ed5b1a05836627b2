package api

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/brewer-michael/claudia-web/internal/config"
	"github.com/brewer-michael/claudia-web/internal/events"
	"github.com/brewer-michael/claudia-web/internal/workspace"
	"github.com/brewer-michael/claudia-web/pkg/protocol"
)

type testServer struct {
	*httptest.Server
	root        string
	broadcaster *events.Broadcaster
}

func newTestServer(t *testing.T, maxFileSize int64) *testServer {
	t.Helper()
	root := t.TempDir()

	ws, err := workspace.New(workspace.Config{Root: root, MaxFileSize: maxFileSize})
	if err != nil {
		t.Fatalf("workspace init failed: %v", err)
	}

	cfg := &config.Config{
		WorkspaceDir: root,
		MaxFileSize:  maxFileSize,
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = workspace.DefaultMaxFileSize
	}

	broadcaster := events.NewBroadcaster()
	ts := httptest.NewServer(NewServer(ws, broadcaster, cfg).Handler())
	t.Cleanup(ts.Close)

	return &testServer{Server: ts, root: root, broadcaster: broadcaster}
}

func seedFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	return resp
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatal(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	return resp
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, 0)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var health protocol.HealthResponse
	json.NewDecoder(resp.Body).Decode(&health)
	if health.Status != "ok" {
		t.Errorf("expected status ok, got %s", health.Status)
	}
	if health.WorkspaceDir == "" {
		t.Error("expected non-empty workspace dir")
	}
}

func TestProjectLifecycle(t *testing.T) {
	ts := newTestServer(t, 0)

	resp := postJSON(t, ts.URL+"/workspace/projects", protocol.CreateProjectRequest{Name: "My App"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var created protocol.ProjectSummary
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()
	if created.ID != "my-app" {
		t.Errorf("expected id my-app, got %s", created.ID)
	}
	if created.Name != "My App" {
		t.Errorf("expected name My App, got %s", created.Name)
	}

	resp, err := http.Get(ts.URL + "/workspace/projects")
	if err != nil {
		t.Fatal(err)
	}
	var roster []protocol.ProjectSummary
	json.NewDecoder(resp.Body).Decode(&roster)
	resp.Body.Close()
	if len(roster) != 1 || roster[0].ID != "my-app" {
		t.Fatalf("unexpected roster: %+v", roster)
	}

	resp = doJSON(t, http.MethodDelete, ts.URL+"/workspace/projects/my-app", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on delete, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/workspace/projects")
	if err != nil {
		t.Fatal(err)
	}
	roster = nil
	json.NewDecoder(resp.Body).Decode(&roster)
	resp.Body.Close()
	if len(roster) != 0 {
		t.Fatalf("expected empty roster after delete, got %+v", roster)
	}
}

func TestCreateProjectValidation(t *testing.T) {
	ts := newTestServer(t, 0)

	resp := postJSON(t, ts.URL+"/workspace/projects", protocol.CreateProjectRequest{Name: "   "})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for blank name, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, ts.URL+"/workspace/projects", protocol.CreateProjectRequest{Name: "demo"})
	resp.Body.Close()
	resp = postJSON(t, ts.URL+"/workspace/projects", protocol.CreateProjectRequest{Name: "demo"})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for duplicate, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestProjectListingScopesPaths(t *testing.T) {
	ts := newTestServer(t, 0)
	seedFile(t, ts.root, "demo/src/index.ts", "export {}\n")
	seedFile(t, ts.root, "other/secret.txt", "hidden")

	resp, err := http.Get(ts.URL + "/workspace/projects/demo/files")
	if err != nil {
		t.Fatal(err)
	}
	var listing protocol.ListFilesResponse
	json.NewDecoder(resp.Body).Decode(&listing)
	resp.Body.Close()
	if len(listing.Entries) != 1 || listing.Entries[0].Path != "src" {
		t.Fatalf("unexpected root listing: %+v", listing.Entries)
	}

	resp, err = http.Get(ts.URL + "/workspace/projects/demo/files?path=src")
	if err != nil {
		t.Fatal(err)
	}
	listing = protocol.ListFilesResponse{}
	json.NewDecoder(resp.Body).Decode(&listing)
	resp.Body.Close()
	if len(listing.Entries) != 1 || listing.Entries[0].Path != "src/index.ts" {
		t.Fatalf("unexpected src listing: %+v", listing.Entries)
	}

	// Climbing out of the project is a client error, not a listing of
	// the sibling project.
	resp, err = http.Get(ts.URL + "/workspace/projects/demo/files?path=../other")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for escape, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/workspace/projects/demo/files?path=missing")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for missing dir, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/workspace/projects/nope/files")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for unknown project, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestProjectReadWrite(t *testing.T) {
	ts := newTestServer(t, 0)
	seedFile(t, ts.root, "demo/.keep", "")

	resp := doJSON(t, http.MethodPut, ts.URL+"/workspace/projects/demo/files/content",
		protocol.WriteFileRequest{Path: "notes.md", Content: "# hi\n"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on write, got %d", resp.StatusCode)
	}
	var ack protocol.SuccessResponse
	json.NewDecoder(resp.Body).Decode(&ack)
	resp.Body.Close()
	if !ack.Success {
		t.Error("expected success=true")
	}

	resp = postJSON(t, ts.URL+"/workspace/projects/demo/files/content",
		protocol.ReadFileRequest{Path: "notes.md"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on read, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/") {
		t.Errorf("expected text content type, got %s", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "# hi\n" {
		t.Errorf("expected file content back, got %q", body)
	}

	resp = postJSON(t, ts.URL+"/workspace/projects/demo/files/content",
		protocol.ReadFileRequest{Path: "missing.md"})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for missing file, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestProjectFileDelete(t *testing.T) {
	ts := newTestServer(t, 0)
	seedFile(t, ts.root, "demo/junk.txt", "x")

	resp := doJSON(t, http.MethodDelete, ts.URL+"/workspace/projects/demo/files?path=junk.txt", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on delete, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	if _, err := os.Stat(filepath.Join(ts.root, "demo", "junk.txt")); !os.IsNotExist(err) {
		t.Error("file still on disk after delete")
	}

	resp = doJSON(t, http.MethodDelete, ts.URL+"/workspace/projects/demo/files", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 without path, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestLegacyListingAndFiles(t *testing.T) {
	ts := newTestServer(t, 0)
	seedFile(t, ts.root, "demo/main.go", "package main\n")
	seedFile(t, ts.root, "README.md", "# readme\n")

	resp, err := http.Get(ts.URL + "/files")
	if err != nil {
		t.Fatal(err)
	}
	var listing protocol.ListFilesResponse
	json.NewDecoder(resp.Body).Decode(&listing)
	resp.Body.Close()
	if len(listing.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %+v", listing.Entries)
	}
	if listing.Entries[0].Path != "demo" || !listing.Entries[0].IsDirectory {
		t.Errorf("expected demo directory first, got %+v", listing.Entries[0])
	}

	resp, err = http.Get(ts.URL + "/files?path=demo")
	if err != nil {
		t.Fatal(err)
	}
	listing = protocol.ListFilesResponse{}
	json.NewDecoder(resp.Body).Decode(&listing)
	resp.Body.Close()
	if len(listing.Entries) != 1 || listing.Entries[0].Path != "demo/main.go" {
		t.Fatalf("unexpected demo listing: %+v", listing.Entries)
	}

	resp = postJSON(t, ts.URL+"/files/write", protocol.WriteFileRequest{Path: "a.txt", Content: "x"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on write, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, ts.URL+"/files/read", protocol.ReadFileRequest{Path: "a.txt"})
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "x" {
		t.Errorf("expected written content back, got %q", body)
	}
}

func TestTraversalRejected(t *testing.T) {
	ts := newTestServer(t, 0)

	resp, err := http.Get(ts.URL + "/files?path=..%2F..%2Fetc")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	var errResp protocol.ErrorResponse
	json.NewDecoder(resp.Body).Decode(&errResp)
	if errResp.Code != http.StatusBadRequest {
		t.Errorf("expected code 400 in body, got %d", errResp.Code)
	}
	if errResp.Error == "" {
		t.Error("expected error message")
	}
}

func TestExecuteEndpoint(t *testing.T) {
	ts := newTestServer(t, 0)
	seedFile(t, ts.root, "demo/.keep", "")

	resp := postJSON(t, ts.URL+"/workspace/projects/demo/execute",
		protocol.ExecuteRequest{Command: "echo hi; exit 4"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if code := resp.Header.Get("X-Exit-Code"); code != "4" {
		t.Errorf("expected X-Exit-Code 4, got %s", code)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "hi\n" {
		t.Errorf("expected command output, got %q", body)
	}

	resp = postJSON(t, ts.URL+"/workspace/projects/demo/execute",
		protocol.ExecuteRequest{Command: "  "})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for blank command, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, ts.URL+"/workspace/projects/nope/execute",
		protocol.ExecuteRequest{Command: "true"})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for unknown project, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestOversizedWriteRejected(t *testing.T) {
	ts := newTestServer(t, 8)

	resp := postJSON(t, ts.URL+"/files/write",
		protocol.WriteFileRequest{Path: "big.txt", Content: strings.Repeat("x", 64)})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", resp.StatusCode)
	}
}

func TestGzipListing(t *testing.T) {
	ts := newTestServer(t, 0)
	seedFile(t, ts.root, "a.txt", "x")

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/files", nil)
	if err != nil {
		t.Fatal(err)
	}
	// Setting the header explicitly disables the transport's transparent
	// decompression, so the raw gzip body comes back.
	req.Header.Set("Accept-Encoding", "gzip")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if enc := resp.Header.Get("Content-Encoding"); enc != "gzip" {
		t.Fatalf("expected gzip encoding, got %q", enc)
	}
	gr, err := gzip.NewReader(resp.Body)
	if err != nil {
		t.Fatalf("gzip reader failed: %v", err)
	}
	var listing protocol.ListFilesResponse
	if err := json.NewDecoder(gr).Decode(&listing); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(listing.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %+v", listing.Entries)
	}
}

func TestEventsStream(t *testing.T) {
	ts := newTestServer(t, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected event stream, got %s", ct)
	}

	// The subscription registers after headers are flushed, so keep
	// publishing until the stream carries an event.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				ts.broadcaster.Publish(protocol.ChangeEvent{Op: protocol.OpWrite, Path: "live.txt"})
			}
		}
	}()

	got := make(chan string, 1)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.HasPrefix(line, "data:") {
				got <- strings.TrimSpace(strings.TrimPrefix(line, "data:"))
				return
			}
		}
	}()

	select {
	case data := <-got:
		var event protocol.ChangeEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			t.Fatalf("unmarshal event failed: %v", err)
		}
		if event.Path != "live.txt" || event.Op != protocol.OpWrite {
			t.Errorf("unexpected event: %+v", event)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no event received")
	}
}
