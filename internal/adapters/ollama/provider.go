package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/mail-agent/internal/core"
	"github.com/mikey/mail-agent/internal/llm"
	"github.com/mikey/mail-agent/internal/utils"
)

const (
	defaultModel   = "llama3"
	defaultBaseURL = "http://localhost:11434"
)

// Provider generates replies with a local Ollama server through its
// REST chat API. No credentials are needed, only a reachable server.
type Provider struct {
	baseURL       string
	model         string
	maxTokens     int
	maxBodySize   int
	httpClient    *http.Client
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Error   string      `json:"error,omitempty"`
}

// NewProvider creates an Ollama provider.
func NewProvider(
	baseURL string,
	model string,
	maxTokens int,
	maxBodySize int,
	timeout time.Duration,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *Provider {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = defaultModel
	}

	return &Provider{
		baseURL:       strings.TrimRight(baseURL, "/"),
		model:         model,
		maxTokens:     maxTokens,
		maxBodySize:   maxBodySize,
		httpClient:    &http.Client{Timeout: timeout},
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// Name returns the registry name of the backend.
func (p *Provider) Name() string {
	return "ollama"
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

	payload, err := json.Marshal(chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userMessage},
		},
		Stream: false,
		Options: map[string]any{
			"num_predict": p.maxTokens,
			"temperature": 0.7,
		},
	})
	if err != nil {
		return "", core.NewProviderError(p.Name(), fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", core.NewProviderError(p.Name(), fmt.Errorf("failed to build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", core.NewProviderError(p.Name(), fmt.Errorf("request to Ollama failed: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", core.NewProviderError(p.Name(), fmt.Errorf("failed to read Ollama response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return "", core.NewProviderError(p.Name(),
			fmt.Errorf("Ollama returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))))
	}

	var chat chatResponse
	if err := json.Unmarshal(respBody, &chat); err != nil {
		return "", core.NewProviderError(p.Name(), fmt.Errorf("failed to decode Ollama response: %w", err))
	}
	if chat.Error != "" {
		return "", core.NewProviderError(p.Name(), fmt.Errorf("Ollama error: %s", chat.Error))
	}

	p.logger.Debug("Ollama reply generated", zap.String("model", p.model))

	return strings.TrimSpace(chat.Message.Content), nil
}
