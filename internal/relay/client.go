// Package relay forwards assembled prompts to the upstream chat API and
// normalizes its replies.
package relay

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/tidwall/gjson"

	"chatrelay/config"
	"chatrelay/internal/core"
	"chatrelay/internal/httpclient"
	"chatrelay/internal/observability"
	"chatrelay/internal/prompt"
)

// previewChars bounds the query excerpt written to the debug log.
const previewChars = 1200

// Reply is a successful upstream response.
type Reply struct {
	StatusCode int
	// Raw is the body when it is valid JSON, nil otherwise.
	Raw            json.RawMessage
	ConversationID string
	Answer         string
	Shape          Shape
}

// Client calls the upstream chat endpoint once per Send. It never retries.
type Client struct {
	httpClient *http.Client
	url        string
	apiKey     string
}

// New creates a client with its own HTTP client bounded by cfg.Timeout.
func New(cfg config.UpstreamConfig) *Client {
	return NewWithHTTPClient(cfg, httpclient.New(httpclient.DefaultConfig(cfg.Timeout)))
}

// NewWithHTTPClient creates a client using httpClient.
// If httpClient is nil, http.DefaultClient is used.
func NewWithHTTPClient(cfg config.UpstreamConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		httpClient: httpClient,
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
	}
}

// Send posts payload upstream. The call is detached from ctx cancellation so
// a disconnecting caller does not abort it; only the client timeout does.
// Transport failures are internal errors, non-200 statuses are upstream
// errors carrying that status.
func (c *Client) Send(ctx context.Context, payload *core.PromptPayload) (*Reply, error) {
	requestID := core.RequestIDFromContext(ctx)
	ctx = context.WithoutCancel(ctx)

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, core.NewInternalError(core.ErrorKindInternal, fmt.Errorf("marshal payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, core.NewInternalError(core.ErrorKindInternal, err)
	}
	c.setHeaders(req, requestID)

	slog.Debug("sending query upstream",
		"request_id", requestID,
		"user", payload.User,
		"conversation_id", payload.ConversationID,
		"query", preview(payload.Query),
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		observability.RecordUpstream(0, time.Since(start))
		return nil, core.NewInternalError(core.ErrorKindUpstreamUnreachable, err)
	}
	defer func() {
		_ = resp.Body.Close() //nolint:errcheck
	}()

	respBody, err := readBody(resp)
	observability.RecordUpstream(resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, core.NewInternalError(core.ErrorKindUpstreamUnreachable, fmt.Errorf("read upstream response: %w", err))
	}

	slog.Debug("upstream replied",
		"request_id", requestID,
		"status", resp.StatusCode,
		"body", string(respBody),
	)

	if resp.StatusCode != http.StatusOK {
		return nil, core.NewUpstreamError(resp.StatusCode, respBody)
	}

	answer, shape := Parse(respBody)
	reply := &Reply{
		StatusCode:     resp.StatusCode,
		ConversationID: conversationID(respBody),
		Answer:         answer,
		Shape:          shape,
	}
	if gjson.ValidBytes(respBody) {
		reply.Raw = json.RawMessage(respBody)
	}
	return reply, nil
}

func (c *Client) setHeaders(req *http.Request, requestID string) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept-Encoding", "br, gzip")
	if requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}
}

// readBody decodes br and gzip bodies. Setting Accept-Encoding by hand turns
// off the transport's own gzip handling.
func readBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = resp.Body
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "br":
		r = brotli.NewReader(resp.Body)
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer func() {
			_ = gz.Close() //nolint:errcheck
		}()
		r = gz
	}
	return io.ReadAll(r)
}

// conversationID returns the top-level conversation_id of an object reply.
func conversationID(body []byte) string {
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return ""
	}
	id := root.Get("conversation_id")
	if id.Type == gjson.Null {
		return ""
	}
	return id.String()
}

func preview(query string) string {
	return strings.ReplaceAll(prompt.Truncate(query, previewChars), "\n", `\n`)
}
