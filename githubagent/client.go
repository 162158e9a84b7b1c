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

package githubagent

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the GitHub REST API endpoint.
	DefaultBaseURL = "https://api.github.com"

	// DefaultTimeout bounds each API call.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResponseSize caps response bodies (5MB). GitHub file
	// contents can be large; anything bigger is not useful in a chat reply.
	DefaultMaxResponseSize = 5 * 1024 * 1024
)

// Repository is one repository search result.
type Repository struct {
	FullName    string `json:"full_name"`
	HTMLURL     string `json:"html_url"`
	Stars       int    `json:"stargazers_count"`
	Description string `json:"description"`
}

// ContentEntry is one entry from the repository contents API. For files the
// Content field holds the base64-encoded body.
type ContentEntry struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	HTMLURL  string `json:"html_url"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

// ClientConfig configures the GitHub REST client.
type ClientConfig struct {
	BaseURL string        // Optional: API base URL (tests point it at a local server)
	Token   string        // Optional: bearer token; anonymous access works with lower rate limits
	Timeout time.Duration // Optional: per-call timeout
}

// Client is a minimal GitHub REST client covering repository search and the
// contents API. It holds no per-request state and is safe for concurrent use.
type Client struct {
	baseURL         string
	token           string
	httpClient      *http.Client
	maxResponseSize int64
}

// NewClient creates a GitHub client with hardened defaults.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		baseURL:         strings.TrimSuffix(cfg.BaseURL, "/"),
		token:           cfg.Token,
		httpClient:      &http.Client{Timeout: cfg.Timeout},
		maxResponseSize: DefaultMaxResponseSize,
	}
}

// get performs a GET against the API and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("github API request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseSize))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("not found")
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("github API returned status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// SearchRepositories searches repositories by term, ordered by stars, and
// returns at most limit results.
func (c *Client) SearchRepositories(ctx context.Context, term string, limit int) ([]Repository, error) {
	if limit <= 0 {
		limit = 5
	}
	path := "/search/repositories?q=" + url.QueryEscape(term) +
		"&sort=stars&order=desc&per_page=" + strconv.Itoa(limit)

	var result struct {
		Items []Repository `json:"items"`
	}
	if err := c.get(ctx, path, &result); err != nil {
		return nil, err
	}
	if len(result.Items) > limit {
		result.Items = result.Items[:limit]
	}
	return result.Items, nil
}

// GetContents fetches owner/repo at path. The contents API returns a JSON
// object for a file and a JSON array for a directory; exactly one of the
// return values is non-nil on success.
func (c *Client) GetContents(ctx context.Context, owner, repo, path string) (*ContentEntry, []ContentEntry, error) {
	apiPath := fmt.Sprintf("/repos/%s/%s/contents", url.PathEscape(owner), url.PathEscape(repo))
	if path != "" {
		apiPath += "/" + strings.TrimPrefix(path, "/")
	}

	var raw json.RawMessage
	if err := c.get(ctx, apiPath, &raw); err != nil {
		return nil, nil, err
	}

	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var entries []ContentEntry
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, nil, fmt.Errorf("failed to decode directory listing: %w", err)
		}
		return nil, entries, nil
	}

	var entry ContentEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, nil, fmt.Errorf("failed to decode content entry: %w", err)
	}
	return &entry, nil, nil
}

// DecodeContent returns the decoded body of a file entry.
func (e *ContentEntry) DecodeContent() (string, error) {
	if e.Encoding != "" && e.Encoding != "base64" {
		return "", fmt.Errorf("unsupported content encoding %q", e.Encoding)
	}
	// GitHub wraps base64 content at 60 columns; strip the newlines first.
	cleaned := strings.ReplaceAll(e.Content, "\n", "")
	decoded, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return "", fmt.Errorf("failed to decode file content: %w", err)
	}
	return string(decoded), nil
}
