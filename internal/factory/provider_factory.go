package factory

import (
	"go.uber.org/zap"

	"github.com/mikey/mail-agent/internal/adapters/anthropic"
	"github.com/mikey/mail-agent/internal/adapters/bedrock"
	"github.com/mikey/mail-agent/internal/adapters/googleai"
	"github.com/mikey/mail-agent/internal/adapters/ollama"
	"github.com/mikey/mail-agent/internal/adapters/openai"
	"github.com/mikey/mail-agent/internal/config"
	"github.com/mikey/mail-agent/internal/core"
	"github.com/mikey/mail-agent/internal/llm"
	"github.com/mikey/mail-agent/internal/utils"
)

// NewProviderRegistry builds the registry with every compiled-in
// backend. All builders run lazily, so listing a backend here costs
// nothing until a rule selects it; a selected backend with missing
// credentials fails at resolution time with the builder's error.
func NewProviderRegistry(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *llm.Registry {
	registry := llm.NewRegistry(logger)

	registry.Register("openai", func() (core.Provider, error) {
		return openai.NewFactory(cfg, logger, textProcessor).CreateProvider()
	})
	registry.Register("anthropic", func() (core.Provider, error) {
		return anthropic.NewFactory(cfg, logger, textProcessor).CreateProvider()
	})
	registry.Register("google", func() (core.Provider, error) {
		return googleai.NewFactory(cfg, logger, textProcessor).CreateProvider()
	})
	registry.Register("ollama", func() (core.Provider, error) {
		return ollama.NewFactory(cfg, logger, textProcessor).CreateProvider()
	})
	registry.Register("bedrock", func() (core.Provider, error) {
		return bedrock.NewFactory(cfg, logger, textProcessor).CreateProvider()
	})

	return registry
}
