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

/*
Package gateway implements the PromptGate HTTP service: a single POST /chat
endpoint that admits or rejects each message against a hot-reloadable
allow-list file and forwards admitted queries to the configured backend.

The admission decision is made fresh on every request: the allow-list file is
re-read, so edits take effect immediately without a restart, and a missing or
unreadable file degrades to rejecting everything.

Exactly one backend is active per process, selected by the BACKEND setting:

  - "llm": forwards the query to the first healthy LLM provider (OpenAI,
    Anthropic, Gemini, or Bedrock, whichever has credentials).
  - "github": answers the query with rule-based GitHub lookups; no language
    model involved.

A rejected message is not an error: the endpoint returns HTTP 200 with the
fixed text "Command not allowed.". Backend failures return a generic HTTP 500
with no upstream detail.
*/
package gateway
