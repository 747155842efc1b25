package bedrock

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
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

// NewFactory creates a new factory for Bedrock providers.
func NewFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *Factory {
	return &Factory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateProvider creates a new Bedrock provider from the configured
// llm.providers.bedrock block. Credentials come from the standard AWS
// environment; the block supplies region and model.
func (f *Factory) CreateProvider() (core.Provider, error) {
	providerCfg := f.cfg.GetProvider("bedrock")

	opts := []func(*awsconfig.LoadOptions) error{}
	if providerCfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(providerCfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := bedrockruntime.NewFromConfig(awsCfg)

	return NewProvider(
		client,
		providerCfg.Model,
		providerCfg.MaxTokens,
		providerCfg.MaxBodySize,
		f.logger,
		f.textProcessor,
	), nil
}
