package googleai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/mikey/mail-agent/internal/core"
	"github.com/mikey/mail-agent/internal/llm"
	"github.com/mikey/mail-agent/internal/utils"
)

const defaultModel = "gemini-pro"

// Provider generates replies with the Google Gemini API.
type Provider struct {
	client        *genai.Client
	model         *genai.GenerativeModel
	modelName     string
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewProvider creates a Gemini provider. The API key is required.
func NewProvider(
	apiKey string,
	modelName string,
	maxTokens int,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Google API key is required")
	}
	if modelName == "" {
		modelName = defaultModel
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetMaxOutputTokens(int32(maxTokens))
	model.SetTemperature(0.7)

	return &Provider{
		client:        client,
		model:         model,
		modelName:     modelName,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
	}, nil
}

// Name returns the registry name of the backend.
func (p *Provider) Name() string {
	return "google"
}

// DefaultModel returns the model used when none is configured.
func (p *Provider) DefaultModel() string {
	return defaultModel
}

// Close closes the underlying Gemini client.
func (p *Provider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

// GenerateReply produces reply text for the email content under the
// rule's system prompt. Gemini takes no separate system role here, so
// the system prompt is prepended to the user message.
func (p *Provider) GenerateReply(ctx context.Context, content, systemPrompt, subject string) (string, error) {
	body := p.textProcessor.ProcessText(content, p.maxBodySize)
	userMessage := llm.BuildUserMessage(body, subject)
	fullPrompt := systemPrompt + "\n\n---\n\n" + userMessage

	resp, err := p.model.GenerateContent(ctx, genai.Text(fullPrompt))
	if err != nil {
		return "", core.NewProviderError(p.Name(), fmt.Errorf("content generation failed: %w", err))
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", core.NewProviderError(p.Name(), fmt.Errorf("empty response from Gemini"))
	}

	var parts []string
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	if len(parts) == 0 {
		return "", core.NewProviderError(p.Name(), fmt.Errorf("no text content in Gemini response"))
	}

	p.logger.Debug("Gemini reply generated", zap.String("model", p.modelName))

	return strings.TrimSpace(strings.Join(parts, "")), nil
}
