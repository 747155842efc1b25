package googleai

import (
	"go.uber.org/zap"

	"github.com/mikey/mail-agent/internal/config"
	"github.com/mikey/mail-agent/internal/core"
	"github.com/mikey/mail-agent/internal/utils"
)

// Factory creates new Provider instances from configuration.
type Factory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewFactory creates a new factory for Gemini providers.
func NewFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *Factory {
	return &Factory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateProvider creates a new Gemini provider from the configured
// llm.providers.google block.
func (f *Factory) CreateProvider() (core.Provider, error) {
	providerCfg := f.cfg.GetProvider("google")

	return NewProvider(
		providerCfg.APIKey,
		providerCfg.Model,
		providerCfg.MaxTokens,
		providerCfg.MaxBodySize,
		f.logger,
		f.textProcessor,
	)
}
