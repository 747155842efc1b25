package anthropic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/mikey/mail-agent/internal/core"
	"github.com/mikey/mail-agent/internal/llm"
	"github.com/mikey/mail-agent/internal/utils"
)

const defaultModel = "claude-sonnet-4-20250514"

// Provider generates replies with the Anthropic Messages API.
type Provider struct {
	client        anthropic.Client
	model         string
	maxTokens     int
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewProvider creates an Anthropic provider. The API key is required.
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
		return nil, fmt.Errorf("Anthropic API key is required")
	}
	if model == "" {
		model = defaultModel
	}

	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(timeout),
	)

	return &Provider{
		client:        client,
		model:         model,
		maxTokens:     maxTokens,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
	}, nil
}

// Name returns the registry name of the backend.
func (p *Provider) Name() string {
	return "anthropic"
}

// DefaultModel returns the model used when none is configured.
func (p *Provider) DefaultModel() string {
	return defaultModel
}

// GenerateReply produces reply text for the email content under the
// rule's system prompt.
func (p *Provider) GenerateReply(ctx context.Context, content, systemPrompt, subject string) (string, error) {
	body := p.textProcessor.ProcessText(content, p.maxBodySize)
	userMessage := llm.BuildUserMessage(body, subject)

	message, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(p.maxTokens),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userMessage)),
		},
	})
	if err != nil {
		return "", core.NewProviderError(p.Name(), fmt.Errorf("message request failed: %w", err))
	}

	var parts []string
	for _, block := range message.Content {
		if block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}
	if len(parts) == 0 {
		return "", core.NewProviderError(p.Name(), fmt.Errorf("no text content in Anthropic response"))
	}

	p.logger.Debug("Anthropic reply generated",
		zap.String("model", p.model),
		zap.String("message_id", message.ID))

	return strings.TrimSpace(strings.Join(parts, "\n")), nil
}
