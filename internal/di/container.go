package di

import (
	"flag"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/mail-agent/internal/adapters/imapdraft"
	"github.com/mikey/mail-agent/internal/adapters/mailparse"
	"github.com/mikey/mail-agent/internal/adapters/smtpout"
	"github.com/mikey/mail-agent/internal/config"
	"github.com/mikey/mail-agent/internal/core"
	"github.com/mikey/mail-agent/internal/factory"
	"github.com/mikey/mail-agent/internal/llm"
	"github.com/mikey/mail-agent/internal/logging"
	"github.com/mikey/mail-agent/internal/utils"
)

// Flags contains all command line flags for the pipe handler.
type Flags struct {
	ConfigFile string
	RulesFile  string
	InputFile  string
	DryRun     bool
	Validate   bool
	TestMode   bool
	Verbose    bool
	JSONLog    bool
}

// ParseFlags parses command line flags and returns a Flags struct.
func ParseFlags() *Flags {
	flags := &Flags{}

	flag.StringVar(&flags.ConfigFile, "config", config.DefaultSettingsPath, "Path to settings file")
	flag.StringVar(&flags.RulesFile, "rules", config.DefaultRulesPath, "Path to rules file")
	flag.StringVar(&flags.InputFile, "file", "", "Input email file (use stdin if not specified)")
	flag.BoolVar(&flags.DryRun, "dry-run", false, "Generate the reply but do not deliver it")
	flag.BoolVar(&flags.Validate, "validate", false, "Validate configuration and exit")
	flag.BoolVar(&flags.TestMode, "test", false, "Print matching details to stdout instead of delivering")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")

	flag.Parse()
	return flags
}

// BuildContainer creates and configures a dependency injection container
// for the pipe handler.
func BuildContainer(flags *Flags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *Flags { return flags }); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *Flags) (*config.Config, error) {
		return config.New(flags.ConfigFile, flags.RulesFile)
	}); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *Flags, cfg *config.Config) (*zap.Logger, error) {
		if flags.Verbose || flags.JSONLog {
			return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
		}
		return logging.InitLogger(cfg)
	}); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(utils.NewTextProcessor); err != nil {
		return nil, err
	}

	// Register mail parser
	if err := container.Provide(mailparse.NewParser); err != nil {
		return nil, err
	}

	// Register provider registry
	if err := container.Provide(factory.NewProviderRegistry); err != nil {
		return nil, err
	}

	// Register history factory and reply history
	if err := container.Provide(factory.NewHistoryFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.HistoryFactory) (core.ReplyHistory, error) {
		return f.CreateHistory()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.HistoryFactory) core.RateLimit {
		return f.RateLimit()
	}); err != nil {
		return nil, err
	}

	// Register skip guard
	if err := container.Provide(core.NewSkipGuard); err != nil {
		return nil, err
	}

	// Register rule matcher
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *core.RuleMatcher {
		return core.NewRuleMatcher(cfg.Rules(), logger)
	}); err != nil {
		return nil, err
	}

	// Register reply generator
	if err := container.Provide(func(registry *llm.Registry, cfg *config.Config, logger *zap.Logger) *core.ReplyGenerator {
		return core.NewReplyGenerator(registry, cfg.GetMail().FromAddress, logger)
	}); err != nil {
		return nil, err
	}

	// Register delivery router with lazily constructed sinks
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *core.DeliveryRouter {
		newSender := func() (core.MessageSender, error) {
			return smtpout.NewSender(cfg.GetMail(), logger), nil
		}
		newDrafts := func() (core.DraftSaver, error) {
			return imapdraft.NewDrafts(cfg.GetIMAP(), logger), nil
		}
		return core.NewDeliveryRouter(newSender, newDrafts, logger)
	}); err != nil {
		return nil, err
	}

	// Register message processing service
	if err := container.Provide(core.NewService); err != nil {
		return nil, err
	}

	return container, nil
}
