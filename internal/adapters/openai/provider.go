package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mikey/mail-agent/internal/core"
	"github.com/mikey/mail-agent/internal/llm"
	"github.com/mikey/mail-agent/internal/utils"
)

const defaultModel = "gpt-4-turbo"

// Provider generates replies with the OpenAI chat completion API.
type Provider struct {
	client        *openai.Client
	model         string
	maxTokens     int
	maxBodySize   int
	timeout       time.Duration
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewProvider creates an OpenAI provider. The API key is required.
func NewProvider(
	apiKey string,
	model string,
	maxTokens int,
	maxBodySize int,
	timeout time.Duration,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if model == "" {
		model = defaultModel
	}

	return &Provider{
		client:        openai.NewClient(apiKey),
		model:         model,
		maxTokens:     maxTokens,
		maxBodySize:   maxBodySize,
		timeout:       timeout,
		logger:        logger,
		textProcessor: textProcessor,
	}, nil
}

// Name returns the registry name of the backend.
func (p *Provider) Name() string {
	return "openai"
}

// DefaultModel returns the model used when none is configured.
func (p *Provider) DefaultModel() string {
	return defaultModel
}

// GenerateReply produces reply text for the email content under the
// rule's system prompt.
func (p *Provider) GenerateReply(ctx context.Context, content, systemPrompt, subject string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	body := p.textProcessor.ProcessText(content, p.maxBodySize)
	userMessage := llm.BuildUserMessage(body, subject)

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMessage},
		},
		MaxTokens:   p.maxTokens,
		Temperature: 0.7,
	})
	if err != nil {
		return "", core.NewProviderError(p.Name(), fmt.Errorf("chat completion failed: %w", err))
	}

	if len(resp.Choices) == 0 {
		return "", core.NewProviderError(p.Name(), fmt.Errorf("empty response from OpenAI"))
	}

	p.logger.Debug("OpenAI reply generated",
		zap.String("model", p.model),
		zap.String("completion_id", resp.ID))

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
