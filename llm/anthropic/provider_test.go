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

package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockHTTPClient is a mock implementation of HTTPClient.
type MockHTTPClient struct {
	mock.Mock
}

func (m *MockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*http.Response), args.Error(1)
}

func TestNewProvider_Success(t *testing.T) {
	provider, err := NewProvider(Config{APIKey: "test-api-key"})

	require.NoError(t, err)
	assert.Equal(t, "anthropic", provider.Name())
	assert.Equal(t, DefaultBaseURL, provider.baseURL)
	assert.Equal(t, DefaultAPIVersion, provider.apiVersion)
	assert.Equal(t, DefaultModel, provider.model)
	assert.True(t, provider.IsHealthy())
}

func TestNewProvider_MissingAPIKey(t *testing.T) {
	_, err := NewProvider(Config{})
	assert.Error(t, err)
}

func TestNewProvider_CustomConfig(t *testing.T) {
	provider, err := NewProvider(Config{
		APIKey:     "test-api-key",
		BaseURL:    "https://custom.anthropic.com",
		APIVersion: "2024-01-01",
		Model:      "claude-3-opus-20240229",
		Timeout:    60 * time.Second,
	})

	require.NoError(t, err)
	assert.Equal(t, "https://custom.anthropic.com", provider.baseURL)
	assert.Equal(t, "2024-01-01", provider.apiVersion)
	assert.Equal(t, "claude-3-opus-20240229", provider.model)
}

func TestComplete_Success(t *testing.T) {
	respBody, _ := json.Marshal(map[string]interface{}{
		"content":     []map[string]string{{"type": "text", "text": "Hello there."}},
		"model":       DefaultModel,
		"stop_reason": "end_turn",
		"usage":       map[string]int{"input_tokens": 12, "output_tokens": 5},
	})

	client := new(MockHTTPClient)
	client.On("Do", mock.AnythingOfType("*http.Request")).Return(&http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(bytes.NewReader(respBody)),
	}, nil)

	provider, err := NewProvider(Config{APIKey: "test-api-key"})
	require.NoError(t, err)
	provider.client = client

	resp, err := provider.Complete(context.Background(), CompletionRequest{
		Prompt:       "hi",
		SystemPrompt: "be nice",
		MaxTokens:    1000,
		Temperature:  0.7,
	})

	require.NoError(t, err)
	assert.Equal(t, "Hello there.", resp.Content)
	assert.Equal(t, "end_turn", resp.StopReason)
	assert.Equal(t, 12, resp.InputTokens)
	assert.Equal(t, 5, resp.OutputTokens)

	req := client.Calls[0].Arguments.Get(0).(*http.Request)
	assert.Equal(t, "test-api-key", req.Header.Get("x-api-key"))
	assert.Equal(t, DefaultAPIVersion, req.Header.Get("anthropic-version"))
	assert.Equal(t, "/v1/messages", req.URL.Path)
}

func TestComplete_APIError(t *testing.T) {
	respBody, _ := json.Marshal(map[string]interface{}{
		"error": map[string]string{
			"type":    "authentication_error",
			"message": "invalid x-api-key",
		},
	})

	client := new(MockHTTPClient)
	client.On("Do", mock.AnythingOfType("*http.Request")).Return(&http.Response{
		StatusCode: http.StatusUnauthorized,
		Body:       io.NopCloser(bytes.NewReader(respBody)),
	}, nil)

	provider, err := NewProvider(Config{APIKey: "bad-key"})
	require.NoError(t, err)
	provider.client = client

	_, err = provider.Complete(context.Background(), CompletionRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authentication_error")
	assert.True(t, provider.IsHealthy(), "4xx does not mark the provider unhealthy")
}

func TestComplete_ServerErrorMarksUnhealthy(t *testing.T) {
	client := new(MockHTTPClient)
	client.On("Do", mock.AnythingOfType("*http.Request")).Return(&http.Response{
		StatusCode: http.StatusBadGateway,
		Body:       io.NopCloser(bytes.NewReader([]byte("bad gateway"))),
	}, nil)

	provider, err := NewProvider(Config{APIKey: "test-api-key"})
	require.NoError(t, err)
	provider.client = client

	_, err = provider.Complete(context.Background(), CompletionRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.False(t, provider.IsHealthy())
}
