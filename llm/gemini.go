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
	"strings"
	"sync"
	"time"
)

const (
	// GeminiDefaultEndpoint is the Generative Language API base URL.
	GeminiDefaultEndpoint = "https://generativelanguage.googleapis.com"

	// GeminiDefaultModel is used when no model is configured.
	GeminiDefaultModel = "gemini-1.5-flash"
)

// GeminiProvider calls Google's Gemini generateContent API.
type GeminiProvider struct {
	apiKey   string
	endpoint string
	model    string
	client   HTTPClient
	healthy  bool
	mu       sync.RWMutex
}

// NewGeminiProvider creates a Gemini provider. The model falls back to
// GeminiDefaultModel when empty.
func NewGeminiProvider(apiKey, model string) *GeminiProvider {
	if model == "" {
		model = GeminiDefaultModel
	}
	return &GeminiProvider{
		apiKey:   apiKey,
		endpoint: GeminiDefaultEndpoint,
		model:    model,
		client:   &http.Client{Timeout: 120 * time.Second},
		healthy:  true,
	}
}

// Name returns the provider name.
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// IsHealthy reports whether the last API call succeeded and a key is set.
func (p *GeminiProvider) IsHealthy() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.healthy && p.apiKey != ""
}

func (p *GeminiProvider) setHealthy(healthy bool) {
	p.mu.Lock()
	p.healthy = healthy
	p.mu.Unlock()
}

// Query sends a generateContent request and returns the generated text.
// Gemini has no dedicated system role, so the system prompt is prepended to
// the user content.
func (p *GeminiProvider) Query(ctx context.Context, prompt string, options QueryOptions) (*Response, error) {
	start := time.Now()

	model := options.Model
	if model == "" {
		model = p.model
	}

	content := prompt
	if options.SystemPrompt != "" {
		content = options.SystemPrompt + "\n\n" + prompt
	}

	geminiReq := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]string{{"text": content}},
			},
		},
		"generationConfig": map[string]interface{}{
			"maxOutputTokens": options.MaxTokens,
			"temperature":     options.Temperature,
		},
	}

	reqBody, err := json.Marshal(geminiReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", p.endpoint, model, p.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		p.setHealthy(false)
		return nil, fmt.Errorf("gemini API error: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode >= 500 {
			p.setHealthy(false)
		}
		return nil, fmt.Errorf("gemini API returned status %d: %s", resp.StatusCode, string(body))
	}

	p.setHealthy(true)

	var geminiResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
		UsageMetadata struct {
			TotalTokenCount int `json:"totalTokenCount"`
		} `json:"usageMetadata"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	var sb strings.Builder
	if len(geminiResp.Candidates) > 0 {
		for _, part := range geminiResp.Candidates[0].Content.Parts {
			sb.WriteString(part.Text)
		}
	}

	return &Response{
		Content:      sb.String(),
		Model:        model,
		Provider:     p.Name(),
		TokensUsed:   geminiResp.UsageMetadata.TotalTokenCount,
		ResponseTime: time.Since(start),
	}, nil
}
