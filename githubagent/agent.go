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

// Package githubagent implements the GitHub lookup backend: a rule-based
// dispatcher that maps a free-text query onto one of three intents
// (repository search, file content fetch, directory listing) and answers it
// with GitHub REST calls. No language model is involved; intent matching is
// keyword and regex heuristics only.
package githubagent

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
)

// maxSearchResults caps formatted repository search output.
const maxSearchResults = 5

// maxContentChars caps inlined file content before truncation.
const maxContentChars = 1000

// searchTriggers route a query to the repository-search intent when any of
// them occurs in the lowercased query.
var searchTriggers = []string{"repository", "repo", "project"}

// searchStopwords are excluded when extracting a search term from the query.
var searchStopwords = map[string]struct{}{
	"repository": {},
	"repo":       {},
	"project":    {},
	"github":     {},
	"search":     {},
	"for":        {},
}

var (
	fetchContentPattern = regexp.MustCompile(`(?i)get content of\s+(\S+)\s+from\s+([A-Za-z0-9_.-]+)/([A-Za-z0-9_.-]+)`)
	listContentsPattern = regexp.MustCompile(`(?i)list (?:files|contents) in\s+([A-Za-z0-9_.-]+)/([A-Za-z0-9_.-]+)(?:\s+at path\s+(\S+))?`)
)

const helpMessage = `I can help with GitHub lookups. Try one of:
- Search repositories: "search github for web scraping projects"
- Fetch a file: "get content of README.md from golang/go"
- List a directory: "list files in golang/go at path src"`

// repoService is the subset of Client the agent uses; tests substitute a stub.
type repoService interface {
	SearchRepositories(ctx context.Context, term string, limit int) ([]Repository, error)
	GetContents(ctx context.Context, owner, repo, path string) (*ContentEntry, []ContentEntry, error)
}

// Agent answers admitted queries using GitHub REST lookups. Intents are
// checked in a fixed order and the first match wins; a query matching none of
// them gets a help message. Sub-call failures are reported inline in the
// response text so one failed lookup never aborts the whole reply.
type Agent struct {
	client repoService
}

// NewAgent creates an Agent over the given client.
func NewAgent(client *Client) *Agent {
	return &Agent{client: client}
}

// Respond handles one admitted query. The returned error is always nil today:
// every lookup failure is absorbed into explanatory response text. Callers
// should still check it to keep the backend contract uniform.
func (a *Agent) Respond(ctx context.Context, query string) (string, error) {
	queryLower := strings.ToLower(query)

	// Intent order matters: search triggers are checked first, then the two
	// structured patterns, then the fallback help message.
	if containsSearchTrigger(queryLower) {
		return a.searchRepositories(ctx, queryLower), nil
	}

	if m := fetchContentPattern.FindStringSubmatch(query); m != nil {
		return a.fetchFileContent(ctx, m[2], m[3], m[1]), nil
	}

	if m := listContentsPattern.FindStringSubmatch(query); m != nil {
		return a.listDirectory(ctx, m[1], m[2], m[3]), nil
	}

	return helpMessage, nil
}

func containsSearchTrigger(queryLower string) bool {
	for _, trigger := range searchTriggers {
		if strings.Contains(queryLower, trigger) {
			return true
		}
	}
	return false
}

// extractSearchTerm picks the first query word outside the stopword set,
// falling back to the whole lowercased query.
func extractSearchTerm(queryLower string) string {
	for _, word := range strings.Fields(queryLower) {
		word = strings.Trim(word, ".,!?\"'")
		if word == "" {
			continue
		}
		if _, stop := searchStopwords[word]; !stop {
			return word
		}
	}
	return queryLower
}

func (a *Agent) searchRepositories(ctx context.Context, queryLower string) string {
	term := extractSearchTerm(queryLower)

	repos, err := a.client.SearchRepositories(ctx, term, maxSearchResults)
	if err != nil {
		log.Printf("[GitHubAgent] Repository search for %q failed: %v", term, err)
		return fmt.Sprintf("Repository search for %q failed; GitHub could not be reached or returned an error.", term)
	}
	if len(repos) == 0 {
		return fmt.Sprintf("No repositories found for %q.", term)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Top repositories for %q:\n", term)
	for _, repo := range repos {
		desc := repo.Description
		if desc == "" {
			desc = "no description"
		}
		fmt.Fprintf(&sb, "%s: %s (stars: %d) - %s\n", repo.FullName, repo.HTMLURL, repo.Stars, desc)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (a *Agent) fetchFileContent(ctx context.Context, owner, repo, path string) string {
	entry, _, err := a.client.GetContents(ctx, owner, repo, path)
	if err != nil {
		log.Printf("[GitHubAgent] Content fetch %s/%s/%s failed: %v", owner, repo, path, err)
		return fmt.Sprintf("Could not fetch %s from %s/%s: the file may not exist or GitHub was unreachable.", path, owner, repo)
	}
	if entry == nil || entry.Type != "file" {
		return fmt.Sprintf("%s in %s/%s is not a file; try \"list files in %s/%s\" instead.", path, owner, repo, owner, repo)
	}

	content, err := entry.DecodeContent()
	if err != nil {
		log.Printf("[GitHubAgent] Decoding %s/%s/%s failed: %v", owner, repo, path, err)
		return fmt.Sprintf("Found %s in %s/%s but could not decode its content. File URL: %s", path, owner, repo, entry.HTMLURL)
	}

	if runes := []rune(content); len(runes) > maxContentChars {
		content = string(runes[:maxContentChars]) + "..."
	}
	return fmt.Sprintf("Content of %s from %s/%s:\n%s\n\nFile URL: %s", path, owner, repo, content, entry.HTMLURL)
}

func (a *Agent) listDirectory(ctx context.Context, owner, repo, path string) string {
	_, entries, err := a.client.GetContents(ctx, owner, repo, path)
	if err != nil {
		log.Printf("[GitHubAgent] Listing %s/%s/%s failed: %v", owner, repo, path, err)
		return fmt.Sprintf("Could not list %s/%s: the repository or path may not exist or GitHub was unreachable.", owner, repo)
	}
	if entries == nil {
		return fmt.Sprintf("%s in %s/%s is a file, not a directory; try \"get content of %s from %s/%s\".", path, owner, repo, path, owner, repo)
	}
	if len(entries) == 0 {
		return fmt.Sprintf("%s/%s has no entries at %q.", owner, repo, path)
	}

	location := owner + "/" + repo
	if path != "" {
		location += "/" + path
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Contents of %s:\n", location)
	for _, entry := range entries {
		fmt.Fprintf(&sb, "%s: %s (%s)\n", capitalize(entry.Type), entry.Name, entry.HTMLURL)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
