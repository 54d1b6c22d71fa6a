package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"agenthub/config"
	apperrors "agenthub/errors"

	"go.uber.org/zap"
)

// SendOptions carries per-send parameters to the engine.
type SendOptions struct {
	AgentID  string `json:"agent_id,omitempty"`
	Model    string `json:"model,omitempty"`
	Thinking bool   `json:"thinking,omitempty"`
}

// Ack is the engine's synchronous acknowledgement of a send. Any field may be
// absent: some backends answer immediately with Text, some only assign a
// RunID and stream the answer later, some report usage up front.
type Ack struct {
	SessionKey string                 `json:"session_key,omitempty"`
	RunID      string                 `json:"run_id,omitempty"`
	Text       string                 `json:"text,omitempty"`
	Usage      map[string]interface{} `json:"usage,omitempty"`
}

// Message is one persisted chat message.
type Message struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at"`
}

// SessionSummary is the engine's raw record for one session, consumed by the
// conversation aggregator.
type SessionSummary struct {
	SessionKey   string   `json:"session_key"`
	AgentID      string   `json:"agent_id"`
	Kind         string   `json:"kind"`
	Label        string   `json:"label"`
	LastMessage  string   `json:"last_message"`
	LastRole     string   `json:"last_role"`
	LastTs       int64    `json:"last_ts"`
	Pinned       bool     `json:"pinned"`
	Members      []string `json:"members,omitempty"`
	MessageCount int      `json:"message_count"`
}

// Client is the narrow surface the orchestrator needs from the engine
// backend. Transport details stay behind this interface.
type Client interface {
	SendChat(ctx context.Context, sessionKey, text string, opts SendOptions) (Ack, error)
	AbortChat(ctx context.Context, sessionKey string) error
	FetchHistory(ctx context.Context, sessionKey string, limit int) ([]Message, error)
	ListSessions(ctx context.Context, limit int) ([]SessionSummary, error)
	PruneEmptySessions(ctx context.Context, maxAge time.Duration, excludeKey string) (int, error)
}

// HTTPClient talks to the engine over its local HTTP API.
type HTTPClient struct {
	cfg        *config.Config
	httpClient *http.Client
	logger     *zap.Logger
}

func NewHTTPClient(cfg *config.Config, logger *zap.Logger) *HTTPClient {
	// The client timeout bounds non-streaming calls; streaming deltas arrive
	// out-of-band via the event ingestion endpoint, not on this connection.
	return &HTTPClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.EngineRequestTimeout},
		logger:     logger,
	}
}

type sendChatRequest struct {
	SessionKey string      `json:"session_key"`
	Text       string      `json:"text"`
	Options    SendOptions `json:"options"`
}

// SendChat fires a chat request and returns the engine's acknowledgement.
func (c *HTTPClient) SendChat(ctx context.Context, sessionKey, text string, opts SendOptions) (Ack, error) {
	body, err := json.Marshal(sendChatRequest{SessionKey: sessionKey, Text: text, Options: opts})
	if err != nil {
		return Ack{}, fmt.Errorf("marshal send request: %w", err)
	}

	respBody, err := c.post(ctx, "/v1/chat/send", body)
	if err != nil {
		return Ack{}, err
	}

	var ack Ack
	if err := json.Unmarshal(respBody, &ack); err != nil {
		return Ack{}, fmt.Errorf("decode send ack: %w", err)
	}
	return ack, nil
}

// AbortChat asks the engine to stop generating for a session. Best effort;
// callers do not wait on server-side teardown.
func (c *HTTPClient) AbortChat(ctx context.Context, sessionKey string) error {
	body, err := json.Marshal(map[string]string{"session_key": sessionKey})
	if err != nil {
		return fmt.Errorf("marshal abort request: %w", err)
	}
	if _, err := c.post(ctx, "/v1/chat/abort", body); err != nil {
		return err
	}
	return nil
}

// FetchHistory returns the persisted messages for a session, oldest first.
func (c *HTTPClient) FetchHistory(ctx context.Context, sessionKey string, limit int) ([]Message, error) {
	q := url.Values{}
	q.Set("session_key", sessionKey)
	q.Set("limit", fmt.Sprintf("%d", limit))

	respBody, err := c.get(ctx, "/v1/history?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var out struct {
		Messages []Message `json:"messages"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return out.Messages, nil
}

// ListSessions returns raw session summaries for the conversation index.
func (c *HTTPClient) ListSessions(ctx context.Context, limit int) ([]SessionSummary, error) {
	respBody, err := c.get(ctx, fmt.Sprintf("/v1/sessions?limit=%d", limit))
	if err != nil {
		return nil, err
	}

	var out struct {
		Sessions []SessionSummary `json:"sessions"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("decode sessions: %w", err)
	}
	return out.Sessions, nil
}

// PruneEmptySessions deletes sessions with no messages older than maxAge,
// sparing excludeKey. Returns the number pruned.
func (c *HTTPClient) PruneEmptySessions(ctx context.Context, maxAge time.Duration, excludeKey string) (int, error) {
	body, err := json.Marshal(map[string]interface{}{
		"max_age_seconds": int64(maxAge.Seconds()),
		"exclude_key":     excludeKey,
	})
	if err != nil {
		return 0, fmt.Errorf("marshal prune request: %w", err)
	}

	respBody, err := c.post(ctx, "/v1/sessions/prune", body)
	if err != nil {
		return 0, err
	}

	var out struct {
		Pruned int `json:"pruned"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return 0, fmt.Errorf("decode prune response: %w", err)
	}
	return out.Pruned, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

func (c *HTTPClient) get(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	endpoint := strings.TrimRight(c.cfg.EngineHost, "/") + path

	var resp *http.Response
	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return nil, fmt.Errorf("create engine request: %w", err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		r, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			// Do not retry on context cancellation/deadline
			if ctx.Err() != nil {
				break
			}
			continue
		}

		if r.StatusCode == http.StatusServiceUnavailable {
			// Engine busy or restarting; retry with backoff
			io.Copy(io.Discard, r.Body)
			r.Body.Close()
			c.logger.Warn("Engine unavailable, retrying",
				zap.String("path", path),
				zap.Int("attempt", attempt+1))
			c.backoffSleep(attempt)
			continue
		}

		resp = r
		break
	}
	if resp == nil {
		return nil, apperrors.WrapErrorf(apperrors.ErrTransport, "no response from engine for %s (%v)", path, lastErr)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrTransport, fmt.Sprintf("read engine response for %s: %v", path, err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.WrapErrorf(apperrors.ErrTransport, "engine status %s for %s: %s", resp.Status, path, string(respBody))
	}
	return respBody, nil
}

func (c *HTTPClient) backoffSleep(attempt int) {
	// Exponential backoff with configurable jitter and cap
	base := c.cfg.RetryDelaySeconds
	if base <= 0 {
		base = time.Second
	}
	d := base * time.Duration(1<<attempt)
	if c.cfg.BackoffMaxSeconds > 0 && d > c.cfg.BackoffMaxSeconds {
		d = c.cfg.BackoffMaxSeconds
	}
	jitterRatio := c.cfg.BackoffJitterRatio
	if jitterRatio < 0 || jitterRatio > 1 {
		jitterRatio = 0.1
	}
	jitter := time.Duration(float64(d) * jitterRatio)
	time.Sleep(d - jitter + time.Duration(time.Now().UnixNano()%int64(2*jitter+1)))
}
