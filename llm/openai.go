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

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

const (
	// OpenAIDefaultEndpoint is the OpenAI API base URL.
	OpenAIDefaultEndpoint = "https://api.openai.com"

	// OpenAIDefaultModel is used when no model is configured.
	OpenAIDefaultModel = "gpt-3.5-turbo"
)

// OpenAIProvider calls the OpenAI chat completions API.
type OpenAIProvider struct {
	apiKey   string
	endpoint string
	model    string
	client   HTTPClient
	healthy  bool
	mu       sync.RWMutex
}

// NewOpenAIProvider creates an OpenAI provider. The model falls back to
// OpenAIDefaultModel when empty.
func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	if model == "" {
		model = OpenAIDefaultModel
	}
	return &OpenAIProvider{
		apiKey:   apiKey,
		endpoint: OpenAIDefaultEndpoint,
		model:    model,
		client:   &http.Client{Timeout: 120 * time.Second},
		healthy:  true,
	}
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// IsHealthy reports whether the last API call succeeded and a key is set.
func (p *OpenAIProvider) IsHealthy() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.healthy && p.apiKey != ""
}

func (p *OpenAIProvider) setHealthy(healthy bool) {
	p.mu.Lock()
	p.healthy = healthy
	p.mu.Unlock()
}

// Query sends a chat completion request and returns the generated text.
func (p *OpenAIProvider) Query(ctx context.Context, prompt string, options QueryOptions) (*Response, error) {
	start := time.Now()

	model := options.Model
	if model == "" {
		model = p.model
	}

	messages := []map[string]string{}
	if options.SystemPrompt != "" {
		messages = append(messages, map[string]string{"role": "system", "content": options.SystemPrompt})
	}
	messages = append(messages, map[string]string{"role": "user", "content": prompt})

	openAIReq := map[string]interface{}{
		"model":       model,
		"messages":    messages,
		"max_tokens":  options.MaxTokens,
		"temperature": options.Temperature,
	}

	reqBody, err := json.Marshal(openAIReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.endpoint+"/v1/chat/completions", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		p.setHealthy(false)
		return nil, fmt.Errorf("openai API error: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode >= 500 {
			p.setHealthy(false)
		}
		return nil, fmt.Errorf("openai API returned status %d: %s", resp.StatusCode, string(body))
	}

	p.setHealthy(true)

	var openAIResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			TotalTokens int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&openAIResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	content := ""
	if len(openAIResp.Choices) > 0 {
		content = openAIResp.Choices[0].Message.Content
	}

	return &Response{
		Content:      content,
		Model:        model,
		Provider:     p.Name(),
		TokensUsed:   openAIResp.Usage.TotalTokens,
		ResponseTime: time.Since(start),
	}, nil
}
