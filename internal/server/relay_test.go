package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatrelay/config"
	"chatrelay/internal/extractor"
	"chatrelay/internal/relay"
)

// upstreamStub counts calls and answers with a fixed status and body.
func upstreamStub(t *testing.T, status int, body string, calls *atomic.Int32, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if seen != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newRelayServer(t *testing.T, upstreamURL string) *Server {
	t.Helper()
	client := relay.New(config.UpstreamConfig{APIKey: "app-key", URL: upstreamURL, Timeout: 5 * time.Second})
	return New(client, extractor.New(t.TempDir()), nil)
}

func TestRelay_EndToEnd(t *testing.T) {
	var calls atomic.Int32
	var seen map[string]any
	upstream := upstreamStub(t, http.StatusOK,
		`{"event":"message","conversation_id":"c-7","answer":"Resposta final"}`, &calls, &seen)

	srv := newRelayServer(t, upstream.URL)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, multipartRequest(t,
		map[string]string{"message": "Explique", "conversation_id": "c-7"},
		&upload{filename: "main.go.txt", content: []byte("package main")}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int32(1), calls.Load())

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Resposta final", body["message"])
	assert.Equal(t, "c-7", body["conversation_id"])

	assert.Equal(t, "Explique\n\n📄 Conteúdo do arquivo: main.go.txt\n\npackage main", seen["query"])
	assert.Equal(t, "user-192.0.2.10", seen["user"])
	assert.Equal(t, "c-7", seen["conversation_id"])
}

func TestRelay_EmptyInputMakesNoCall(t *testing.T) {
	var calls atomic.Int32
	upstream := upstreamStub(t, http.StatusOK, `{"answer":"x"}`, &calls, nil)

	srv := newRelayServer(t, upstream.URL)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, multipartRequest(t, map[string]string{"message": ""}, nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, int32(0), calls.Load())
}

func TestRelay_UpstreamStatusPassthrough(t *testing.T) {
	var calls atomic.Int32
	upstream := upstreamStub(t, http.StatusTooManyRequests, `{"code":"too_many_requests"}`, &calls, nil)

	srv := newRelayServer(t, upstream.URL)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, multipartRequest(t, map[string]string{"message": "oi"}, nil))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, `Erro Dify (429): {"code":"too_many_requests"}`, decodeBody(t, rec)["error"])
	assert.Equal(t, int32(1), calls.Load(), "no retry after a failed attempt")
}
