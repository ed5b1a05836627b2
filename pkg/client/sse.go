package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/brewer-michael/claudia-web/pkg/protocol"
)

// SSEClient consumes the workspace change-event stream. It reconnects
// with doubling backoff and drops events when the consumer falls
// behind rather than blocking the read loop.
type SSEClient struct {
	baseURL      string
	httpClient   *http.Client
	reconnectMin time.Duration
	reconnectMax time.Duration
	logger       *zap.Logger
}

// NewSSEClient creates an SSE client for baseURL. logger may be nil.
func NewSSEClient(baseURL string, logger *zap.Logger) *SSEClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SSEClient{
		baseURL: trimSlash(baseURL),
		httpClient: &http.Client{
			Timeout: 0, // stream stays open indefinitely
		},
		reconnectMin: 1 * time.Second,
		reconnectMax: 30 * time.Second,
		logger:       logger,
	}
}

// Subscribe connects to the event stream and returns event and error
// channels. Both close when ctx is done.
func (c *SSEClient) Subscribe(ctx context.Context) (<-chan protocol.ChangeEvent, <-chan error) {
	events := make(chan protocol.ChangeEvent, 100)
	errs := make(chan error, 1)

	go c.subscribeLoop(ctx, events, errs)

	return events, errs
}

func (c *SSEClient) subscribeLoop(ctx context.Context, events chan<- protocol.ChangeEvent, errs chan<- error) {
	defer close(events)
	defer close(errs)

	delay := c.reconnectMin

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		err := c.connect(ctx, events)
		if err != nil {
			if ctx.Err() != nil {
				return
			}

			c.logger.Warn("event stream disconnected",
				zap.Error(err),
				zap.Duration("reconnect_in", delay))

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}

			delay *= 2
			if delay > c.reconnectMax {
				delay = c.reconnectMax
			}
			continue
		}

		delay = c.reconnectMin
	}
}

func (c *SSEClient) connect(ctx context.Context, events chan<- protocol.ChangeEvent) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/events", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}

	c.logger.Info("event stream connected", zap.String("url", req.URL.String()))

	scanner := bufio.NewScanner(resp.Body)
	var data string

	for scanner.Scan() {
		line := scanner.Text()

		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if line == "" {
			if data != "" {
				var event protocol.ChangeEvent
				if err := json.Unmarshal([]byte(data), &event); err == nil {
					select {
					case events <- event:
					default:
						c.logger.Debug("change event dropped (subscriber behind)")
					}
				}
			}
			data = ""
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}
		if strings.HasPrefix(line, "data:") {
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read: %w", err)
	}
	return fmt.Errorf("connection closed")
}
