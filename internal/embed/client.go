package embed

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	amerrors "github.com/aman-cerp/vaultindex/internal/errors"
)

// ConnectionState is the embedding client's connection lifecycle state.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateFailed       ConnectionState = "failed"
	StateRetrying     ConnectionState = "retrying"
)

// ConnectionStatus snapshots the client's current connection state.
type ConnectionStatus struct {
	State        ConnectionState
	Attempt      int
	NextRetryIn  time.Duration
	LastErr      error
}

// TransportFailureKind classifies why a call to the embedding service failed.
type TransportFailureKind string

const (
	FailureNetwork            TransportFailureKind = "network"
	FailureHTTP               TransportFailureKind = "http"
	FailureConfig             TransportFailureKind = "config"
	FailureServiceUnavailable TransportFailureKind = "service_unavailable"
	FailureDownload           TransportFailureKind = "download"
	FailureDiskSpace          TransportFailureKind = "disk_space"
)

// TransportError is a typed transport failure from the embedding service.
type TransportError struct {
	Kind    TransportFailureKind
	Status  int
	Timeout bool
	Cause   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("embedding transport error (%s): %v", e.Kind, e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// DefaultEmbedRetryConfig returns the backoff schedule the spec requires:
// initial 1s, doubling, capped at ~30s, up to 4 attempts total (1 initial + 3 retries).
func DefaultEmbedRetryConfig() amerrors.RetryConfig {
	return amerrors.RetryConfig{
		MaxRetries:   3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       false,
	}
}

// HealthStatus reports the embedding service's discovery/health snapshot.
type HealthStatus struct {
	Status  string
	Version string
	Models  []string
}

// VerifyResult reports whether a specific model is installed and usable.
type VerifyResult struct {
	Available  bool
	Compatible bool
	Info       OllamaModelInfo
}

// PullEvent is one newline-delimited progress event from POST /api/pull.
type PullEvent struct {
	Status    string `json:"status"`
	Completed int64  `json:"completed,omitempty"`
	Total     int64  `json:"total,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Client wraps an OllamaEmbedder with the connection-state machine and the
// discovery/verify/pull operations the pipeline's collaborator contract
// requires beyond plain Embed/EmbedBatch.
type Client struct {
	*OllamaEmbedder

	stateMu sync.Mutex
	state   ConnectionState
	attempt int
	lastErr error
}

// NewClient constructs a Client, performing the same health-check and
// model-discovery dance as NewOllamaEmbedder, then tracking connection state
// for subsequent calls.
func NewClient(ctx context.Context, cfg OllamaConfig) (*Client, error) {
	c := &Client{state: StateConnecting}

	embedder, err := amerrors.RetryWithResult(ctx, DefaultEmbedRetryConfig(), func() (*OllamaEmbedder, error) {
		e, err := NewOllamaEmbedder(ctx, cfg)
		if err != nil {
			c.stateMu.Lock()
			c.attempt++
			c.lastErr = err
			c.state = StateRetrying
			c.stateMu.Unlock()
			return nil, err
		}
		return e, nil
	})
	if err != nil {
		c.stateMu.Lock()
		c.state = StateFailed
		c.lastErr = err
		c.stateMu.Unlock()
		return nil, classifyTransportError(err)
	}

	c.OllamaEmbedder = embedder
	c.stateMu.Lock()
	c.state = StateConnected
	c.stateMu.Unlock()
	return c, nil
}

// Status returns a snapshot of the connection state machine.
func (c *Client) Status() ConnectionStatus {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return ConnectionStatus{State: c.state, Attempt: c.attempt, LastErr: c.lastErr}
}

// Health reports the embedding service's discovery/health snapshot by
// listing installed models via GET /api/tags.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	models, err := c.listModels(ctx)
	if err != nil {
		return HealthStatus{Status: "unreachable"}, classifyTransportError(err)
	}
	names := make([]string, 0, len(models))
	for _, m := range models {
		names = append(names, m.Name)
	}
	return HealthStatus{Status: "ok", Models: names}, nil
}

// ListModels exposes the installed model set.
func (c *Client) ListModels(ctx context.Context) ([]OllamaModelInfo, error) {
	models, err := c.listModels(ctx)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	return models, nil
}

// Verify checks whether model is installed and usable.
func (c *Client) Verify(ctx context.Context, model string) (VerifyResult, error) {
	models, err := c.listModels(ctx)
	if err != nil {
		return VerifyResult{}, classifyTransportError(err)
	}
	for _, m := range models {
		if m.Name == model {
			return VerifyResult{Available: true, Compatible: true, Info: m}, nil
		}
	}
	return VerifyResult{Available: false}, nil
}

// Pull requests the embedding service download a model, returning a channel
// of progress events read from the streamed NDJSON response. The channel is
// closed when the stream ends or ctx is cancelled.
func (c *Client) Pull(ctx context.Context, model string) (<-chan PullEvent, error) {
	url := c.config.Host + "/api/pull"
	reqBody, err := json.Marshal(map[string]any{"name": model, "stream": true})
	if err != nil {
		return nil, amerrors.New(amerrors.ErrCodeConfigInvalid, "failed to build pull request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, amerrors.New(amerrors.ErrCodeConfigInvalid, "failed to create pull request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, &TransportError{Kind: FailureHTTP, Status: resp.StatusCode}
	}

	events := make(chan PullEvent, 16)
	go func() {
		defer close(events)
		defer func() { _ = resp.Body.Close() }()

		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			select {
			case <-ctx.Done():
				return
			default:
			}
			var ev PullEvent
			if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
				continue
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}

func classifyTransportError(err error) error {
	if err == nil {
		return nil
	}
	if te, ok := err.(*TransportError); ok {
		return te
	}
	timeout := context.DeadlineExceeded.Error() == err.Error()
	return &TransportError{Kind: FailureNetwork, Cause: err, Timeout: timeout}
}
