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

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

const (
	// BedrockDefaultRegion is used when no region is configured.
	BedrockDefaultRegion = "us-east-1"

	// BedrockDefaultModel is used when no model is configured.
	BedrockDefaultModel = "anthropic.claude-3-5-sonnet-20240620-v1:0"
)

// bedrockInvoker is the subset of the Bedrock runtime client used here.
// Tests substitute a stub.
type bedrockInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockProvider calls AWS Bedrock via the AWS SDK, which handles
// Signature V4 authentication through the ambient credential chain.
type BedrockProvider struct {
	client  bedrockInvoker
	region  string
	model   string
	healthy bool
	mu      sync.RWMutex
}

// NewBedrockProvider creates a Bedrock provider. It returns an error when the
// AWS configuration cannot be loaded; callers should handle that rather than
// silently falling back.
func NewBedrockProvider(region, model string) (*BedrockProvider, error) {
	if region == "" {
		region = BedrockDefaultRegion
	}
	if model == "" {
		model = BedrockDefaultModel
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for Bedrock (region: %s): %w", region, err)
	}

	log.Printf("[Bedrock] Initialized provider (region: %s, model: %s)", region, model)
	return &BedrockProvider{
		client:  bedrockruntime.NewFromConfig(awsCfg),
		region:  region,
		model:   model,
		healthy: true,
	}, nil
}

// Name returns the provider name.
func (p *BedrockProvider) Name() string {
	return "bedrock"
}

// IsHealthy reports whether the last InvokeModel call succeeded.
func (p *BedrockProvider) IsHealthy() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.healthy
}

func (p *BedrockProvider) setHealthy(healthy bool) {
	p.mu.Lock()
	p.healthy = healthy
	p.mu.Unlock()
}

// Query invokes the configured Bedrock model. Only Anthropic-family models
// accept a system prompt natively; for other families the system prompt is
// folded into the prompt text.
func (p *BedrockProvider) Query(ctx context.Context, prompt string, options QueryOptions) (*Response, error) {
	start := time.Now()

	model := options.Model
	if model == "" {
		model = p.model
	}

	requestBody, err := buildBedrockRequestBody(prompt, options, model)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	requestJSON, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	output, err := p.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(model),
		Body:        requestJSON,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		p.setHealthy(false)
		return nil, fmt.Errorf("bedrock API error: %w", err)
	}

	p.setHealthy(true)

	response, err := parseBedrockResponseBody(output.Body, model)
	if err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	response.Model = model
	response.Provider = p.Name()
	response.ResponseTime = time.Since(start)
	return response, nil
}

// bedrockModelFamily extracts the vendor prefix from a Bedrock model ID
// (e.g. "anthropic" from "anthropic.claude-3-5-sonnet-20240620-v1:0").
func bedrockModelFamily(model string) string {
	if idx := strings.Index(model, "."); idx > 0 {
		return model[:idx]
	}
	return ""
}

func buildBedrockRequestBody(prompt string, options QueryOptions, model string) (map[string]interface{}, error) {
	switch family := bedrockModelFamily(model); family {
	case "anthropic":
		body := map[string]interface{}{
			"anthropic_version": "bedrock-2023-05-31",
			"max_tokens":        options.MaxTokens,
			"temperature":       options.Temperature,
			"messages": []map[string]string{
				{"role": "user", "content": prompt},
			},
		}
		if options.SystemPrompt != "" {
			body["system"] = options.SystemPrompt
		}
		return body, nil
	case "amazon":
		text := prompt
		if options.SystemPrompt != "" {
			text = options.SystemPrompt + "\n\n" + prompt
		}
		return map[string]interface{}{
			"inputText": text,
			"textGenerationConfig": map[string]interface{}{
				"maxTokenCount": options.MaxTokens,
				"temperature":   options.Temperature,
			},
		}, nil
	case "meta":
		text := prompt
		if options.SystemPrompt != "" {
			text = options.SystemPrompt + "\n\n" + prompt
		}
		return map[string]interface{}{
			"prompt":      text,
			"max_gen_len": options.MaxTokens,
			"temperature": options.Temperature,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported model family: %q", family)
	}
}

func parseBedrockResponseBody(body []byte, model string) (*Response, error) {
	switch family := bedrockModelFamily(model); family {
	case "anthropic":
		var resp struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
			Usage struct {
				InputTokens  int `json:"input_tokens"`
				OutputTokens int `json:"output_tokens"`
			} `json:"usage"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, err
		}
		var sb strings.Builder
		for _, block := range resp.Content {
			if block.Type == "text" {
				sb.WriteString(block.Text)
			}
		}
		return &Response{
			Content:    sb.String(),
			TokensUsed: resp.Usage.InputTokens + resp.Usage.OutputTokens,
		}, nil
	case "amazon":
		var resp struct {
			Results []struct {
				OutputText string `json:"outputText"`
				TokenCount int    `json:"tokenCount"`
			} `json:"results"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, err
		}
		if len(resp.Results) == 0 {
			return &Response{}, nil
		}
		return &Response{
			Content:    resp.Results[0].OutputText,
			TokensUsed: resp.Results[0].TokenCount,
		}, nil
	case "meta":
		var resp struct {
			Generation           string `json:"generation"`
			GenerationTokenCount int    `json:"generation_token_count"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, err
		}
		return &Response{
			Content:    resp.Generation,
			TokensUsed: resp.GenerationTokenCount,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported model family: %q", family)
	}
}
