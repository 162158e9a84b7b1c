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
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"promptgate/llm"
	"promptgate/policy"
)

// Backend selection values for the BACKEND env var / backend config key.
const (
	BackendLLM    = "llm"
	BackendGitHub = "github"
)

// Config holds the complete gateway configuration. Environment variables are
// the primary source; an optional YAML file (GATEWAY_CONFIG) fills in values
// the environment leaves empty.
type Config struct {
	Port          string
	AllowListFile string
	Backend       string

	LLM llm.Config

	GitHubToken  string
	GitHubAPIURL string
}

// configFile mirrors Config for the optional YAML configuration file.
type configFile struct {
	Port          string `yaml:"port"`
	AllowListFile string `yaml:"allow_list_file"`
	Backend       string `yaml:"backend"`

	LLM struct {
		OpenAIKey     string `yaml:"openai_api_key"`
		OpenAIModel   string `yaml:"openai_model"`
		AnthropicKey  string `yaml:"anthropic_api_key"`
		GeminiKey     string `yaml:"gemini_api_key"`
		GeminiModel   string `yaml:"gemini_model"`
		BedrockRegion string `yaml:"bedrock_region"`
		BedrockModel  string `yaml:"bedrock_model"`
	} `yaml:"llm"`

	GitHub struct {
		Token  string `yaml:"token"`
		APIURL string `yaml:"api_url"`
	} `yaml:"github"`
}

// envVarRegex matches ${VAR_NAME} and ${VAR_NAME:-default} references in the
// YAML config file.
var envVarRegex = regexp.MustCompile(`\$\{[A-Za-z_][A-Za-z0-9_]*(:-[^}]*)?\}`)

// LoadConfig builds the gateway configuration from the environment plus the
// optional YAML file named by GATEWAY_CONFIG. Missing credentials are not an
// error here: a backend without credentials reports unhealthy and requests
// fail with a generic error while the server keeps serving.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:          os.Getenv("PORT"),
		AllowListFile: os.Getenv("ALLOWED_COMMANDS_FILE"),
		Backend:       os.Getenv("BACKEND"),
		LLM: llm.Config{
			OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
			OpenAIModel:   os.Getenv("OPENAI_MODEL"),
			AnthropicKey:  os.Getenv("ANTHROPIC_API_KEY"),
			GeminiKey:     os.Getenv("GEMINI_API_KEY"),
			GeminiModel:   os.Getenv("GEMINI_MODEL"),
			BedrockRegion: os.Getenv("BEDROCK_REGION"),
			BedrockModel:  os.Getenv("BEDROCK_MODEL"),
		},
		GitHubToken:  os.Getenv("GITHUB_TOKEN"),
		GitHubAPIURL: os.Getenv("GITHUB_API_URL"),
	}

	if path := os.Getenv("GATEWAY_CONFIG"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	fillIfEmpty(&cfg.Port, "8080")
	fillIfEmpty(&cfg.AllowListFile, policy.DefaultAllowListFile)
	fillIfEmpty(&cfg.Backend, BackendLLM)

	cfg.Backend = strings.ToLower(cfg.Backend)
	if cfg.Backend != BackendLLM && cfg.Backend != BackendGitHub {
		return nil, fmt.Errorf("unknown backend %q: must be %q or %q", cfg.Backend, BackendLLM, BackendGitHub)
	}

	return cfg, nil
}

// mergeFile overlays values from the YAML file onto cfg. Environment values
// win; the file only fills fields the environment left empty.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expanded := expandEnvVars(string(data))

	var file configFile
	if err := yaml.Unmarshal([]byte(expanded), &file); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	fillIfEmpty(&c.Port, file.Port)
	fillIfEmpty(&c.AllowListFile, file.AllowListFile)
	fillIfEmpty(&c.Backend, file.Backend)
	fillIfEmpty(&c.LLM.OpenAIKey, file.LLM.OpenAIKey)
	fillIfEmpty(&c.LLM.OpenAIModel, file.LLM.OpenAIModel)
	fillIfEmpty(&c.LLM.AnthropicKey, file.LLM.AnthropicKey)
	fillIfEmpty(&c.LLM.GeminiKey, file.LLM.GeminiKey)
	fillIfEmpty(&c.LLM.GeminiModel, file.LLM.GeminiModel)
	fillIfEmpty(&c.LLM.BedrockRegion, file.LLM.BedrockRegion)
	fillIfEmpty(&c.LLM.BedrockModel, file.LLM.BedrockModel)
	fillIfEmpty(&c.GitHubToken, file.GitHub.Token)
	fillIfEmpty(&c.GitHubAPIURL, file.GitHub.APIURL)

	return nil
}

func fillIfEmpty(dst *string, value string) {
	if *dst == "" {
		*dst = value
	}
}

// expandEnvVars replaces ${VAR_NAME} and ${VAR_NAME:-default} references with
// environment values.
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		varName := match[2 : len(match)-1]

		defaultVal := ""
		if idx := strings.Index(varName, ":-"); idx != -1 {
			defaultVal = varName[idx+2:]
			varName = varName[:idx]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultVal
	})
}
