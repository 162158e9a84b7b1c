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
	"context"
	"log"
	"sort"
	"sync"

	"promptgate/llm/anthropic"
)

// Router holds the configured providers and picks one per query. Providers
// are registered once at construction; the set never changes afterwards, so
// the lock only guards health-state reads during selection.
type Router struct {
	providers map[string]Provider
	order     []string
	mu        sync.RWMutex
}

// NewRouter creates a router from the given config. A provider is registered
// only when its credentials are present. A router with zero providers is
// valid: every Query fails with ErrNoProviders and the caller degrades.
func NewRouter(cfg Config) *Router {
	r := &Router{providers: make(map[string]Provider)}

	if cfg.OpenAIKey != "" {
		r.register(NewOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIModel))
	}

	if cfg.AnthropicKey != "" {
		provider, err := anthropic.NewProvider(anthropic.Config{APIKey: cfg.AnthropicKey})
		if err != nil {
			log.Printf("[LLMRouter] ERROR: Failed to initialize Anthropic provider: %v", err)
		} else {
			r.register(&anthropicAdapter{provider: provider})
		}
	}

	if cfg.GeminiKey != "" {
		r.register(NewGeminiProvider(cfg.GeminiKey, cfg.GeminiModel))
	}

	if cfg.BedrockRegion != "" {
		provider, err := NewBedrockProvider(cfg.BedrockRegion, cfg.BedrockModel)
		if err != nil {
			log.Printf("[LLMRouter] ERROR: Failed to initialize Bedrock provider: %v", err)
			log.Printf("[LLMRouter] WARNING: Bedrock is configured (region=%s) but NOT available", cfg.BedrockRegion)
		} else {
			r.register(provider)
		}
	}

	r.logProviderStatus()
	return r
}

func (r *Router) register(p Provider) {
	r.providers[p.Name()] = p
	r.order = append(r.order, p.Name())
	sort.Strings(r.order)
}

func (r *Router) logProviderStatus() {
	if len(r.providers) == 0 {
		log.Printf("[LLMRouter] WARNING: no providers configured - all LLM queries will fail until credentials are supplied")
		return
	}
	log.Printf("[LLMRouter] %d provider(s) configured: %v", len(r.providers), r.order)
}

// Providers returns the registered provider names in stable order.
func (r *Router) Providers() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// IsHealthy reports whether at least one provider is healthy.
func (r *Router) IsHealthy() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.providers {
		if p.IsHealthy() {
			return true
		}
	}
	return false
}

// Query routes the prompt to the first healthy provider in stable name order.
// There is no retry across providers: a failed call surfaces immediately so
// the gateway can map it to its external error surface.
func (r *Router) Query(ctx context.Context, prompt string, options QueryOptions) (*Response, error) {
	r.mu.RLock()
	var selected Provider
	for _, name := range r.order {
		if p := r.providers[name]; p.IsHealthy() {
			selected = p
			break
		}
	}
	r.mu.RUnlock()

	if selected == nil {
		return nil, ErrNoProviders
	}

	return selected.Query(ctx, prompt, options)
}

// anthropicAdapter bridges the anthropic subpackage client to the Provider
// interface.
type anthropicAdapter struct {
	provider *anthropic.Provider
}

func (a *anthropicAdapter) Name() string {
	return a.provider.Name()
}

func (a *anthropicAdapter) IsHealthy() bool {
	return a.provider.IsHealthy()
}

func (a *anthropicAdapter) Query(ctx context.Context, prompt string, options QueryOptions) (*Response, error) {
	resp, err := a.provider.Complete(ctx, anthropic.CompletionRequest{
		Prompt:       prompt,
		SystemPrompt: options.SystemPrompt,
		MaxTokens:    options.MaxTokens,
		Temperature:  options.Temperature,
		Model:        options.Model,
	})
	if err != nil {
		return nil, err
	}
	return &Response{
		Content:      resp.Content,
		Model:        resp.Model,
		Provider:     a.Name(),
		TokensUsed:   resp.InputTokens + resp.OutputTokens,
		ResponseTime: resp.Latency,
	}, nil
}
