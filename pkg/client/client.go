// Package client provides the HTTP client for the workspace API with
// retry and offline tracking.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/brewer-michael/claudia-web/pkg/models"
	"github.com/brewer-michael/claudia-web/pkg/protocol"
	"github.com/brewer-michael/claudia-web/pkg/retry"
)

// Client talks to the workspace API. Operations retry on transport
// errors and 5xx responses; 4xx responses are permanent. The client
// tracks whether the server looked reachable on the last exchange.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	retryConfig retry.Config
	logger      *zap.Logger

	mu       sync.RWMutex
	online   bool
	lastPing time.Time
}

// Config holds client configuration.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	RetryConfig retry.Config
	Logger      *zap.Logger
}

// New creates a new client.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryConfig.MaxAttempts == 0 {
		cfg.RetryConfig = retry.DefaultConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Client{
		baseURL: trimSlash(cfg.BaseURL),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		retryConfig: cfg.RetryConfig,
		logger:      cfg.Logger,
		online:      true,
	}
}

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

// NotFoundError reports that a project or path does not exist on the
// server. It is permanent and never retried.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s", e.Path)
}

// IsNotFound reports whether err carries a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsOnline returns true if the server was reachable on the most
// recent exchange.
func (c *Client) IsOnline() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.online
}

func (c *Client) setOnline(online bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.online != online {
		if online {
			c.logger.Info("workspace server is back online")
		} else {
			c.logger.Warn("workspace server is offline")
		}
	}
	c.online = online
	c.lastPing = time.Now()
}

// Ping checks whether the server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.setOnline(false)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.setOnline(false)
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}

	c.setOnline(true)
	return nil
}

// ListProjects fetches all workspace project summaries.
func (c *Client) ListProjects(ctx context.Context) ([]protocol.ProjectSummary, error) {
	var projects []protocol.ProjectSummary
	err := c.doJSON(ctx, http.MethodGet, "/workspace/projects", nil, &projects)
	if err != nil {
		return nil, err
	}
	return projects, nil
}

// CreateProject creates a project directory in the workspace.
func (c *Client) CreateProject(ctx context.Context, name string) (*protocol.ProjectSummary, error) {
	var project protocol.ProjectSummary
	err := c.doJSON(ctx, http.MethodPost, "/workspace/projects", protocol.CreateProjectRequest{Name: name}, &project)
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// DeleteProject removes a project directory and everything under it.
func (c *Client) DeleteProject(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/workspace/projects/"+url.PathEscape(id), nil, nil)
}

// ListFiles fetches one directory level of a project. An empty path
// lists the project root. The listing is lazy: entries carry no
// children.
func (c *Client) ListFiles(ctx context.Context, projectID, path string) ([]*models.DirectoryEntry, error) {
	endpoint := "/workspace/projects/" + url.PathEscape(projectID) + "/files"
	if path != "" {
		endpoint += "?path=" + url.QueryEscape(path)
	}
	var listing protocol.ListFilesResponse
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &listing); err != nil {
		return nil, err
	}
	return listing.Entries, nil
}

// ListWorkspace fetches one directory level through the legacy
// root-scoped listing endpoint.
func (c *Client) ListWorkspace(ctx context.Context, path string) ([]*models.DirectoryEntry, error) {
	endpoint := "/files"
	if path != "" {
		endpoint += "?path=" + url.QueryEscape(path)
	}
	var listing protocol.ListFilesResponse
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &listing); err != nil {
		return nil, err
	}
	return listing.Entries, nil
}

// ReadFile fetches a project file's content as text.
func (c *Client) ReadFile(ctx context.Context, projectID, path string) (string, error) {
	endpoint := "/workspace/projects/" + url.PathEscape(projectID) + "/files/content"
	body, _, err := c.doRaw(ctx, http.MethodPost, endpoint, protocol.ReadFileRequest{Path: path})
	return body, err
}

// WriteFile stores content at a project-relative path.
func (c *Client) WriteFile(ctx context.Context, projectID, path, content string) error {
	endpoint := "/workspace/projects/" + url.PathEscape(projectID) + "/files/content"
	var ack protocol.SuccessResponse
	return c.doJSON(ctx, http.MethodPut, endpoint, protocol.WriteFileRequest{Path: path, Content: content}, &ack)
}

// DeleteFile removes a file inside a project.
func (c *Client) DeleteFile(ctx context.Context, projectID, path string) error {
	endpoint := "/workspace/projects/" + url.PathEscape(projectID) + "/files?path=" + url.QueryEscape(path)
	return c.doJSON(ctx, http.MethodDelete, endpoint, nil, nil)
}

// ReadWorkspaceFile reads a file through the legacy root-scoped
// endpoint.
func (c *Client) ReadWorkspaceFile(ctx context.Context, path string) (string, error) {
	body, _, err := c.doRaw(ctx, http.MethodPost, "/files/read", protocol.ReadFileRequest{Path: path})
	return body, err
}

// WriteWorkspaceFile writes a file through the legacy root-scoped
// endpoint.
func (c *Client) WriteWorkspaceFile(ctx context.Context, path, content string) error {
	var ack protocol.SuccessResponse
	return c.doJSON(ctx, http.MethodPost, "/files/write", protocol.WriteFileRequest{Path: path, Content: content}, &ack)
}

// ExecResult is the outcome of a remote command execution.
type ExecResult struct {
	Output   string // combined stdout and stderr, interleaved
	ExitCode int
}

// Execute runs a shell command in the project directory and returns
// its combined output. A non-zero exit code is not an error here;
// transport failures are.
func (c *Client) Execute(ctx context.Context, projectID, command string) (*ExecResult, error) {
	endpoint := "/workspace/projects/" + url.PathEscape(projectID) + "/execute"
	body, header, err := c.doRaw(ctx, http.MethodPost, endpoint, protocol.ExecuteRequest{Command: command})
	if err != nil {
		return nil, err
	}
	code := 0
	if v := header.Get("X-Exit-Code"); v != "" {
		code, _ = strconv.Atoi(v)
	}
	return &ExecResult{Output: body, ExitCode: code}, nil
}

// doJSON performs a request with a JSON body and decodes a JSON
// response into out (out may be nil to discard).
func (c *Client) doJSON(ctx context.Context, method, endpoint string, body, out interface{}) error {
	return retry.Do(ctx, c.retryConfig, func() error {
		resp, err := c.send(ctx, method, endpoint, body)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if err := c.statusError(resp); err != nil {
			return err
		}
		c.setOnline(true)

		if out == nil {
			io.Copy(io.Discard, resp.Body)
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	})
}

// doRaw performs a request with a JSON body and returns the raw
// response body as text along with the response headers.
func (c *Client) doRaw(ctx context.Context, method, endpoint string, body interface{}) (string, http.Header, error) {
	var text string
	var header http.Header

	err := retry.Do(ctx, c.retryConfig, func() error {
		resp, err := c.send(ctx, method, endpoint, body)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if err := c.statusError(resp); err != nil {
			return err
		}
		c.setOnline(true)

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		text = string(data)
		header = resp.Header
		return nil
	})

	return text, header, err
}

func (c *Client) send(ctx context.Context, method, endpoint string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.setOnline(false)
		return nil, retry.Retryable(err)
	}
	return resp, nil
}

// statusError classifies a non-2xx response. 404 is a typed permanent
// error and still counts as online; 5xx is retryable and marks the
// server offline; other 4xx are permanent.
func (c *Client) statusError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	if resp.StatusCode == http.StatusNotFound {
		c.setOnline(true)
		nf := &NotFoundError{Path: resp.Request.URL.Path}
		var errResp protocol.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&errResp) == nil && errResp.Details != "" {
			nf.Path = errResp.Details
		}
		return nf
	}

	c.setOnline(false)
	if resp.StatusCode >= 500 {
		return retry.Retryable(fmt.Errorf("server error: %d", resp.StatusCode))
	}

	var errResp protocol.ErrorResponse
	if json.NewDecoder(resp.Body).Decode(&errResp) == nil && errResp.Error != "" {
		return fmt.Errorf("request failed: %s", errResp.Error)
	}
	return fmt.Errorf("request failed: %d", resp.StatusCode)
}
