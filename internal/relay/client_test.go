package relay

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatrelay/config"
	"chatrelay/internal/core"
)

func newTestClient(url string) *Client {
	return New(config.UpstreamConfig{
		APIKey:  "app-secret",
		URL:     url,
		Timeout: 5 * time.Second,
	})
}

func TestSend_Success(t *testing.T) {
	var gotReq map[string]any
	var gotHeaders http.Header

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"answer":"Olá","conversation_id":"conv-9"}`))
	}))
	defer server.Close()

	ctx := core.WithRequestID(context.Background(), "req-123")
	reply, err := newTestClient(server.URL).Send(ctx, core.NewPromptPayload("Hello", "user-10.0.0.1", "conv-1"))
	require.NoError(t, err)

	assert.Equal(t, "Bearer app-secret", gotHeaders.Get("Authorization"))
	assert.Equal(t, "application/json", gotHeaders.Get("Content-Type"))
	assert.Equal(t, "req-123", gotHeaders.Get("X-Request-ID"))

	assert.Equal(t, map[string]any{}, gotReq["inputs"])
	assert.Equal(t, "Hello", gotReq["query"])
	assert.Equal(t, "blocking", gotReq["response_mode"])
	assert.Equal(t, "user-10.0.0.1", gotReq["user"])
	assert.Equal(t, "conv-1", gotReq["conversation_id"])

	assert.Equal(t, "Olá", reply.Answer)
	assert.Equal(t, ShapeAnswer, reply.Shape)
	assert.Equal(t, "conv-9", reply.ConversationID)
	assert.JSONEq(t, `{"answer":"Olá","conversation_id":"conv-9"}`, string(reply.Raw))
}

func TestSend_OmitsEmptyConversationID(t *testing.T) {
	var raw []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"answer":"ok"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Send(context.Background(), core.NewPromptPayload("q", "user-unknown", ""))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "conversation_id")
}

func TestSend_UpstreamErrorPassthrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":"not_found","message":"Conversation Not Exists."}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Send(context.Background(), core.NewPromptPayload("q", "u", "missing"))

	var relayErr *core.RelayError
	require.True(t, errors.As(err, &relayErr))
	assert.Equal(t, core.ErrorKindUpstream, relayErr.Kind)
	assert.Equal(t, http.StatusNotFound, relayErr.HTTPStatusCode())
	assert.Equal(t, `Erro Dify (404): {"code":"not_found","message":"Conversation Not Exists."}`, relayErr.Message)
}

func TestSend_NonJSONSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>gateway</html>"))
	}))
	defer server.Close()

	reply, err := newTestClient(server.URL).Send(context.Background(), core.NewPromptPayload("q", "u", ""))
	require.NoError(t, err)
	assert.Nil(t, reply.Raw)
	assert.Empty(t, reply.Answer)
	assert.Empty(t, reply.ConversationID)
	assert.Equal(t, ShapeEmpty, reply.Shape)
}

func TestSend_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClient(url).Send(context.Background(), core.NewPromptPayload("q", "u", ""))

	var relayErr *core.RelayError
	require.True(t, errors.As(err, &relayErr))
	assert.Equal(t, core.ErrorKindUpstreamUnreachable, relayErr.Kind)
	assert.Equal(t, http.StatusInternalServerError, relayErr.HTTPStatusCode())
	assert.True(t, strings.HasPrefix(relayErr.Message, "Erro interno no servidor: "))
}

func TestSend_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewWithHTTPClient(config.UpstreamConfig{APIKey: "k", URL: server.URL}, &http.Client{Timeout: 50 * time.Millisecond})
	_, err := client.Send(context.Background(), core.NewPromptPayload("q", "u", ""))

	var relayErr *core.RelayError
	require.True(t, errors.As(err, &relayErr))
	assert.Equal(t, core.ErrorKindUpstreamUnreachable, relayErr.Kind)
}

func TestSend_IgnoresCallerCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"answer":"still here"}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reply, err := newTestClient(server.URL).Send(ctx, core.NewPromptPayload("q", "u", ""))
	require.NoError(t, err)
	assert.Equal(t, "still here", reply.Answer)
}

func TestSend_DecodesCompressedBodies(t *testing.T) {
	const body = `{"choices":[{"text":"compressed"}]}`

	encoders := map[string]func(io.Writer) io.WriteCloser{
		"br":   func(w io.Writer) io.WriteCloser { return brotli.NewWriter(w) },
		"gzip": func(w io.Writer) io.WriteCloser { return gzip.NewWriter(w) },
	}

	for encoding, newWriter := range encoders {
		t.Run(encoding, func(t *testing.T) {
			var buf bytes.Buffer
			zw := newWriter(&buf)
			_, err := zw.Write([]byte(body))
			require.NoError(t, err)
			require.NoError(t, zw.Close())

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Contains(t, r.Header.Get("Accept-Encoding"), encoding)
				w.Header().Set("Content-Encoding", encoding)
				_, _ = w.Write(buf.Bytes())
			}))
			defer server.Close()

			reply, err := newTestClient(server.URL).Send(context.Background(), core.NewPromptPayload("q", "u", ""))
			require.NoError(t, err)
			assert.Equal(t, "compressed", reply.Answer)
			assert.JSONEq(t, body, string(reply.Raw))
		})
	}
}

func TestConversationID(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"conversation_id":"abc"}`, "abc"},
		{`{"conversation_id":null}`, ""},
		{`{"answer":"x"}`, ""},
		{`["conversation_id"]`, ""},
		{`not json`, ""},
	}

	for _, tt := range tests {
		if got := conversationID([]byte(tt.body)); got != tt.want {
			t.Errorf("conversationID(%s) = %q, want %q", tt.body, got, tt.want)
		}
	}
}

func TestPreview(t *testing.T) {
	got := preview("line1\nline2")
	assert.Equal(t, `line1\nline2`, got)

	long := strings.Repeat("x", previewChars+10)
	assert.Len(t, preview(long), previewChars)
}
