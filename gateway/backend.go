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
	"fmt"

	"promptgate/githubagent"
	"promptgate/llm"
)

// assistantSystemPrompt guides the model's behavior for admitted queries.
// Users never see or control it.
const assistantSystemPrompt = "You are a highly skilled and helpful AI assistant specialized in providing detailed, " +
	"accurate information and comprehensive code samples. " +
	"Your expertise covers programming, software development, data science, cybersecurity (ethical aspects), " +
	"cloud computing, and general technology topics. " +
	"When asked for code, provide clear, runnable examples in the requested language (Python, JavaScript, HTML, CSS, SQL, Shell, etc.). " +
	"Always strive for clarity, accuracy, and thoroughness in your responses. " +
	"If a user asks for something that subtly deviates but is still related to their allowed topic, " +
	"try to guide them towards valuable, allowed information or code. " +
	"Keep your responses professional and direct."

// Generation parameters for the LLM backend. Fixed server-side.
const (
	assistantMaxTokens   = 1000
	assistantTemperature = 0.7
)

// Backend answers one admitted query. Exactly one backend is active per
// gateway process.
type Backend interface {
	// Name identifies the backend in logs and metrics.
	Name() string

	// Respond produces the response text for an admitted query. Any error is
	// mapped to a generic upstream failure by the handler; its detail is
	// logged, never returned to the client.
	Respond(ctx context.Context, query string) (string, error)

	// IsHealthy reports whether the backend can currently serve queries.
	IsHealthy() bool
}

// NewBackend constructs the backend selected by cfg.Backend.
func NewBackend(cfg *Config) (Backend, error) {
	switch cfg.Backend {
	case BackendLLM:
		return newLLMBackend(cfg.LLM), nil
	case BackendGitHub:
		return newGitHubBackend(cfg), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// llmBackend forwards admitted queries to the provider router with the fixed
// system prompt and generation parameters.
type llmBackend struct {
	router *llm.Router
}

func newLLMBackend(cfg llm.Config) *llmBackend {
	return &llmBackend{router: llm.NewRouter(cfg)}
}

func (b *llmBackend) Name() string { return BackendLLM }

func (b *llmBackend) IsHealthy() bool { return b.router.IsHealthy() }

func (b *llmBackend) Respond(ctx context.Context, query string) (string, error) {
	resp, err := b.router.Query(ctx, query, llm.QueryOptions{
		SystemPrompt: assistantSystemPrompt,
		MaxTokens:    assistantMaxTokens,
		Temperature:  assistantTemperature,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// githubBackend answers admitted queries with rule-based GitHub lookups.
type githubBackend struct {
	agent *githubagent.Agent
}

func newGitHubBackend(cfg *Config) *githubBackend {
	client := githubagent.NewClient(githubagent.ClientConfig{
		BaseURL: cfg.GitHubAPIURL,
		Token:   cfg.GitHubToken,
	})
	return &githubBackend{agent: githubagent.NewAgent(client)}
}

func (b *githubBackend) Name() string { return BackendGitHub }

// IsHealthy is always true: the agent needs no credentials and reports lookup
// failures inline in its response text.
func (b *githubBackend) IsHealthy() bool { return true }

func (b *githubBackend) Respond(ctx context.Context, query string) (string, error) {
	return b.agent.Respond(ctx, query)
}
