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
	"bufio"
	"log"
	"os"
	"strings"
)

// DefaultAllowListFile is the allow-list file read when no path is configured.
const DefaultAllowListFile = "allowed_commands.txt"

// AllowList is a set of lowercase commands and phrases. Membership tests are
// exact string lookups; callers are expected to lowercase before testing.
type AllowList map[string]struct{}

// NewAllowList builds an AllowList from the given entries. Entries are trimmed
// and lowercased; empty entries are dropped. Intended for tests and defaults.
func NewAllowList(entries ...string) AllowList {
	list := make(AllowList, len(entries))
	for _, e := range entries {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			list[e] = struct{}{}
		}
	}
	return list
}

// Contains reports whether the entry is in the allow-list.
func (a AllowList) Contains(entry string) bool {
	_, ok := a[entry]
	return ok
}

// Len returns the number of entries.
func (a AllowList) Len() int {
	return len(a)
}

// Phrases returns the multi-word entries (entries containing at least one
// interior space). These are matched by substring containment rather than
// token membership.
func (a AllowList) Phrases() []string {
	var phrases []string
	for entry := range a {
		if strings.Contains(entry, " ") {
			phrases = append(phrases, entry)
		}
	}
	return phrases
}

// LoadAllowList reads the allow-list file at path. Each non-empty line is
// trimmed, lowercased, and added to the set.
//
// The file is re-read on every admission check so that edits take effect on
// the very next request without a server restart. Any read failure (missing
// file, permissions, I/O) yields an empty AllowList: the filter treats an
// empty list as "reject everything", so a broken configuration fails closed
// instead of failing the request.
func LoadAllowList(path string) AllowList {
	list := make(AllowList)

	f, err := os.Open(path)
	if err != nil {
		log.Printf("[Policy] Failed to open allow-list %q: %v - no commands will be allowed", path, err)
		return list
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("[Policy] Error closing allow-list file: %v", err)
		}
	}()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		entry := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if entry != "" {
			list[entry] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		log.Printf("[Policy] Error reading allow-list %q: %v - no commands will be allowed", path, err)
		return make(AllowList)
	}

	return list
}
