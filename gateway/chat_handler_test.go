// Copyright 2025 PromptGate
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubBackend is a controllable Backend for handler tests.
type stubBackend struct {
	name      string
	healthy   bool
	response  string
	err       error
	lastQuery string
	calls     int
}

func (b *stubBackend) Name() string {
	if b.name == "" {
		return "stub"
	}
	return b.name
}

func (b *stubBackend) IsHealthy() bool { return b.healthy }

func (b *stubBackend) Respond(ctx context.Context, query string) (string, error) {
	b.calls++
	b.lastQuery = query
	if b.err != nil {
		return "", b.err
	}
	return b.response, nil
}

// writeAllowList creates a temp allow-list file and returns its path.
func writeAllowList(t *testing.T, entries ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "allowed_commands.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(entries, "\n")+"\n"), 0o600))
	return path
}

func postChat(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeChatResponse(t *testing.T, rec *httptest.ResponseRecorder) ChatResponse {
	t.Helper()
	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestChatHandler_AdmittedQueryReachesBackend(t *testing.T) {
	backend := &stubBackend{healthy: true, response: "Here is a Python example."}
	handler := NewChatHandler(backend, writeAllowList(t, "python", "golang"))

	rec := postChat(t, handler, `{"message": "write a Python script"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Here is a Python example.", decodeChatResponse(t, rec).Response)
	assert.Equal(t, "write a Python script", backend.lastQuery)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestChatHandler_RejectedQueryIs200(t *testing.T) {
	backend := &stubBackend{healthy: true, response: "should not be called"}
	handler := NewChatHandler(backend, writeAllowList(t, "python"))

	rec := postChat(t, handler, `{"message": "delete the production database"}`)

	assert.Equal(t, http.StatusOK, rec.Code, "rejection is a successful admission decision")
	assert.Equal(t, RejectionMessage, decodeChatResponse(t, rec).Response)
	assert.Zero(t, backend.calls, "rejected queries never reach the backend")
}

func TestChatHandler_MissingAllowListRejectsEverything(t *testing.T) {
	backend := &stubBackend{healthy: true}
	handler := NewChatHandler(backend, filepath.Join(t.TempDir(), "nonexistent.txt"))

	rec := postChat(t, handler, `{"message": "python"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, RejectionMessage, decodeChatResponse(t, rec).Response)
	assert.Zero(t, backend.calls)
}

func TestChatHandler_EmptyMessageRejected(t *testing.T) {
	backend := &stubBackend{healthy: true}
	handler := NewChatHandler(backend, writeAllowList(t, "python"))

	rec := postChat(t, handler, `{"message": ""}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, RejectionMessage, decodeChatResponse(t, rec).Response)
}

func TestChatHandler_MalformedJSONIs400(t *testing.T) {
	backend := &stubBackend{healthy: true}
	handler := NewChatHandler(backend, writeAllowList(t, "python"))

	rec := postChat(t, handler, `{"message": `)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, errInvalidBody, resp.Detail)
}

func TestChatHandler_UnhealthyBackendIs500AndServiceSurvives(t *testing.T) {
	backend := &stubBackend{healthy: false}
	handler := NewChatHandler(backend, writeAllowList(t, "python"))

	rec := postChat(t, handler, `{"message": "python"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, errBackendUnavailable, resp.Detail)
	assert.Zero(t, backend.calls)

	// The process keeps serving: a rejection still works after the failure.
	rec = postChat(t, handler, `{"message": "something else"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, RejectionMessage, decodeChatResponse(t, rec).Response)
}

func TestChatHandler_BackendErrorIsGeneric500(t *testing.T) {
	backend := &stubBackend{healthy: true, err: errors.New("openai: status 429, body: rate limit details")}
	handler := NewChatHandler(backend, writeAllowList(t, "python"))

	rec := postChat(t, handler, `{"message": "python"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, errBackendFailed, resp.Detail)
	assert.NotContains(t, rec.Body.String(), "429", "upstream detail never leaks to the client")
}

func TestChatHandler_HotReload(t *testing.T) {
	backend := &stubBackend{healthy: true, response: "ok"}
	path := writeAllowList(t, "python")
	handler := NewChatHandler(backend, path)

	rec := postChat(t, handler, `{"message": "tell me about golang"}`)
	assert.Equal(t, RejectionMessage, decodeChatResponse(t, rec).Response)

	// Append a new entry; the very next request sees it.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	require.NoError(t, err)
	_, err = f.WriteString("golang\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	rec = postChat(t, handler, `{"message": "tell me about golang"}`)
	assert.Equal(t, "ok", decodeChatResponse(t, rec).Response)
	assert.Equal(t, 1, backend.calls)
}

func TestRouter_Endpoints(t *testing.T) {
	backend := &stubBackend{healthy: true, response: "ok"}
	router := NewRouter(backend, writeAllowList(t, "python"))
	server := httptest.NewServer(router)
	defer server.Close()

	t.Run("health", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/health")
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, serviceName, body["service"])
	})

	t.Run("metrics snapshot", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/metrics")
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Contains(t, body, "total_requests")
		assert.Contains(t, body, "blocked_requests")
	})

	t.Run("prometheus exposition", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/prometheus")
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("chat rejects GET", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/chat")
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}
