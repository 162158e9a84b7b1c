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

package policy

import (
	"strings"
)

// MatchRule identifies which admission strategy matched a query.
type MatchRule string

const (
	// MatchPhrase means an allow-listed multi-word phrase appeared as a
	// contiguous substring of the lowercased query.
	MatchPhrase MatchRule = "phrase"

	// MatchToken means a single token of the normalized query is an
	// allow-listed entry.
	MatchToken MatchRule = "token"

	// MatchExactQuery means the entire normalized query is an allow-listed
	// entry.
	MatchExactQuery MatchRule = "exact_query"

	// MatchNone means no strategy matched; the query is rejected.
	MatchNone MatchRule = "none"
)

// Verdict is the outcome of an admission check. MatchedRule and MatchedEntry
// exist for logging and metrics only; they never influence dispatch.
type Verdict struct {
	Allowed      bool
	MatchedRule  MatchRule
	MatchedEntry string
}

// IsQueryAllowed decides whether a query may reach a backend. It is a pure
// function of the query and the allow-list.
//
// Matching is case-insensitive and runs three strategies in order:
//
//  1. Phrase containment: any multi-word allow-list entry found as a
//     contiguous substring of the lowercased query. This runs before
//     tokenization so a phrase match is not lost to surrounding punctuation.
//     Containment is literal: "web scraping" does not match "web-scraping".
//  2. Token membership: the query is normalized (everything except lowercase
//     letters, digits, and whitespace removed), split on whitespace, and each
//     token is looked up in the allow-list.
//  3. Whole-query match: the full normalized query is looked up verbatim.
//
// An empty allow-list rejects every query, including the empty one. An empty
// list is ambiguous between "misconfigured" and "intentionally locked down",
// and the filter must fail closed in both cases.
func IsQueryAllowed(query string, list AllowList) Verdict {
	if list.Len() == 0 {
		return Verdict{Allowed: false, MatchedRule: MatchNone}
	}

	queryLower := strings.ToLower(query)

	// Strategy 1: multi-word phrase containment against the raw lowercased
	// query, so punctuation around the phrase does not break the match.
	for _, phrase := range list.Phrases() {
		if strings.Contains(queryLower, phrase) {
			return Verdict{Allowed: true, MatchedRule: MatchPhrase, MatchedEntry: phrase}
		}
	}

	normalized := Normalize(queryLower)

	// Strategy 2: individual token membership.
	for _, token := range strings.Fields(normalized) {
		if list.Contains(token) {
			return Verdict{Allowed: true, MatchedRule: MatchToken, MatchedEntry: token}
		}
	}

	// Strategy 3: the entire normalized query as one entry. Catches
	// multi-word entries reached only after punctuation stripping.
	if list.Contains(normalized) {
		return Verdict{Allowed: true, MatchedRule: MatchExactQuery, MatchedEntry: normalized}
	}

	return Verdict{Allowed: false, MatchedRule: MatchNone}
}

// Normalize lowercases the input, removes every character that is not a
// lowercase ASCII letter, a digit, or whitespace, and collapses whitespace
// runs to single spaces. Punctuation disappears while word separation
// survives, so "What about python?" normalizes to "what about python".
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
