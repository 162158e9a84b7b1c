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

// Package main is the entry point for the PromptGate gateway service.
//
// The gateway is a single-endpoint admission filter for AI requests:
// - Checks each message against a hot-reloadable allow-list file
// - Forwards admitted queries to the configured backend (LLM or GitHub)
// - Returns "Command not allowed." for everything else
//
// Usage:
//
//	./gateway
//
// Environment Variables:
//
//	PORT - HTTP server port (default: 8080)
//	ALLOWED_COMMANDS_FILE - allow-list file path (default: allowed_commands.txt)
//	BACKEND - "llm" or "github" (default: llm)
//	OPENAI_API_KEY, ANTHROPIC_API_KEY, GEMINI_API_KEY - LLM provider credentials
//	BEDROCK_REGION, BEDROCK_MODEL - AWS Bedrock provider settings
//	GITHUB_TOKEN - optional token for the GitHub backend
//	GATEWAY_CONFIG - optional YAML config file path
package main

import (
	"promptgate/gateway"
)

func main() {
	gateway.Run()
}
