package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"

	"github.com/mikey/mail-agent/internal/core"
	"github.com/mikey/mail-agent/internal/llm"
	"github.com/mikey/mail-agent/internal/utils"
)

const defaultModel = "anthropic.claude-v2"

// Provider generates replies with Amazon Bedrock. The request and
// response payloads differ per model family, so the provider formats
// them based on the configured model ID.
type Provider struct {
	client        *bedrockruntime.Client
	modelID       string
	maxTokens     int
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewProvider creates a Bedrock provider over an already-configured
// runtime client.
func NewProvider(
	client *bedrockruntime.Client,
	modelID string,
	maxTokens int,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *Provider {
	if modelID == "" {
		modelID = defaultModel
	}

	return &Provider{
		client:        client,
		modelID:       modelID,
		maxTokens:     maxTokens,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// Name returns the registry name of the backend.
func (p *Provider) Name() string {
	return "bedrock"
}

// DefaultModel returns the model used when none is configured.
func (p *Provider) DefaultModel() string {
	return defaultModel
}

func (p *Provider) isAnthropicModel() bool {
	return strings.HasPrefix(p.modelID, "anthropic.")
}

func (p *Provider) isTitanModel() bool {
	return strings.HasPrefix(p.modelID, "amazon.titan")
}

// GenerateReply produces reply text for the email content under the
// rule's system prompt.
func (p *Provider) GenerateReply(ctx context.Context, content, systemPrompt, subject string) (string, error) {
	body := p.textProcessor.ProcessText(content, p.maxBodySize)
	userMessage := llm.BuildUserMessage(body, subject)

	payload, err := p.buildPayload(systemPrompt, userMessage)
	if err != nil {
		return "", core.NewProviderError(p.Name(), fmt.Errorf("failed to marshal request payload: %w", err))
	}

	resp, err := p.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     &p.modelID,
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", core.NewProviderError(p.Name(), fmt.Errorf("failed to invoke Bedrock model: %w", err))
	}

	text, err := p.extractText(resp.Body)
	if err != nil {
		return "", core.NewProviderError(p.Name(), err)
	}

	p.logger.Debug("Bedrock reply generated", zap.String("model_id", p.modelID))

	return strings.TrimSpace(text), nil
}

func (p *Provider) buildPayload(systemPrompt, userMessage string) ([]byte, error) {
	switch {
	case p.isAnthropicModel():
		return json.Marshal(map[string]interface{}{
			"anthropic_version": "bedrock-2023-05-31",
			"max_tokens":        p.maxTokens,
			"system":            systemPrompt,
			"messages": []map[string]interface{}{
				{"role": "user", "content": userMessage},
			},
		})
	case p.isTitanModel():
		return json.Marshal(map[string]interface{}{
			"inputText": systemPrompt + "\n\n" + userMessage,
			"textGenerationConfig": map[string]interface{}{
				"maxTokenCount": p.maxTokens,
				"temperature":   0.7,
			},
		})
	default:
		return json.Marshal(map[string]interface{}{
			"prompt":      systemPrompt + "\n\n" + userMessage,
			"max_tokens":  p.maxTokens,
			"temperature": 0.7,
		})
	}
}

func (p *Provider) extractText(respBody []byte) (string, error) {
	switch {
	case p.isAnthropicModel():
		var claudeResp struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		}
		if err := json.Unmarshal(respBody, &claudeResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Claude response: %w", err)
		}
		var parts []string
		for _, block := range claudeResp.Content {
			if block.Type == "text" {
				parts = append(parts, block.Text)
			}
		}
		if len(parts) == 0 {
			return "", fmt.Errorf("no text content in Claude response")
		}
		return strings.Join(parts, "\n"), nil

	case p.isTitanModel():
		var titanResp struct {
			Results []struct {
				OutputText string `json:"outputText"`
			} `json:"results"`
		}
		if err := json.Unmarshal(respBody, &titanResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Titan response: %w", err)
		}
		if len(titanResp.Results) == 0 {
			return "", fmt.Errorf("empty response from Titan model")
		}
		return titanResp.Results[0].OutputText, nil

	default:
		var genericResp struct {
			Output   string `json:"output"`
			Text     string `json:"text"`
			Response string `json:"response"`
		}
		if err := json.Unmarshal(respBody, &genericResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal generic response: %w", err)
		}
		for _, candidate := range []string{genericResp.Output, genericResp.Text, genericResp.Response} {
			if candidate != "" {
				return candidate, nil
			}
		}
		return string(respBody), nil
	}
}
