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

// Package llm provides a unified interface over text-generation providers
// (OpenAI, Anthropic, Gemini, AWS Bedrock) and a router that selects a healthy
// provider for each request. Provider credentials are read once at startup; a
// router with no configured providers stays up and fails each query with
// ErrNoProviders so the gateway can degrade instead of crashing.
package llm

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// ErrNoProviders is returned by the router when no provider is configured or
// healthy. The gateway maps it to a generic backend-unavailable error.
var ErrNoProviders = errors.New("no LLM providers available")

// Provider is the interface implemented by all text-generation providers.
// Implementations must be safe for concurrent use.
type Provider interface {
	// Name returns the provider identifier used in routing, logs, and metrics.
	Name() string

	// Query generates a completion for the prompt. The context bounds the
	// underlying network call.
	Query(ctx context.Context, prompt string, options QueryOptions) (*Response, error)

	// IsHealthy reports whether the provider is believed operational.
	IsHealthy() bool
}

// QueryOptions carries per-request generation parameters. All values are
// fixed at gateway startup; end users cannot influence them.
type QueryOptions struct {
	Model        string  `json:"model"`
	SystemPrompt string  `json:"system_prompt"`
	MaxTokens    int     `json:"max_tokens"`
	Temperature  float64 `json:"temperature"`
}

// Response is a completion from a provider.
type Response struct {
	Content      string        `json:"content"`
	Model        string        `json:"model"`
	Provider     string        `json:"provider"`
	TokensUsed   int           `json:"tokens_used"`
	ResponseTime time.Duration `json:"response_time"`
}

// Config selects and configures providers. A provider is enabled when its
// credential field is non-empty.
type Config struct {
	OpenAIKey     string
	OpenAIModel   string
	AnthropicKey  string
	GeminiKey     string
	GeminiModel   string
	BedrockRegion string
	BedrockModel  string
}

// HTTPClient is the subset of http.Client the providers use. Tests substitute
// a mock to exercise request and response handling without the network.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
