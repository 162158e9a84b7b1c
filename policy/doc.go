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

// Package policy implements the query admission filter that gates all backend
// access. An allow-list of keywords and phrases is loaded from a plain text
// file on every admission check, so edits to the file take effect on the next
// request without a restart. A query is admitted when it contains an allowed
// multi-word phrase, contains an allowed token, or collapses to an allowed
// entry after normalization. An empty allow-list rejects everything.
package policy
