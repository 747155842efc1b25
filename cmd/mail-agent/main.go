package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/mikey/mail-agent/internal/adapters/mailparse"
	"github.com/mikey/mail-agent/internal/config"
	"github.com/mikey/mail-agent/internal/core"
	"github.com/mikey/mail-agent/internal/di"
)

// Exit codes understood by the calling MTA. Anything above exitTempFail
// would be treated as a permanent failure, so unexpected errors map to
// exitTempFail to make the MTA queue and retry the message.
const (
	exitSuccess    = 0
	exitConfigErr  = 1
	exitProcessErr = 2
	exitTempFail   = 75
)

func main() {
	flags := di.ParseFlags()

	if flags.Validate {
		os.Exit(validate(flags))
	}

	container, err := di.BuildContainer(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build dependency container: %v\n", err)
		os.Exit(exitConfigErr)
	}

	exitCode := exitTempFail
	if err := container.Invoke(func(
		logger *zap.Logger,
		parser *mailparse.Parser,
		service *core.Service,
		history core.ReplyHistory,
	) {
		exitCode = run(flags, logger, parser, service, history)
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(exitConfigErr)
	}

	os.Exit(exitCode)
}

func run(
	flags *di.Flags,
	logger *zap.Logger,
	parser *mailparse.Parser,
	service *core.Service,
	history core.ReplyHistory,
) int {
	defer logger.Sync()
	if stopper, ok := history.(interface{ Stop() }); ok {
		defer stopper.Stop()
	}

	input, err := openInput(flags)
	if err != nil {
		logger.Error("Failed to open input", zap.Error(err))
		return exitTempFail
	}
	defer input.Close()

	msg, err := parser.Parse(input)
	if err != nil {
		logger.Error("Failed to parse message", zap.Error(err))
		return exitTempFail
	}

	result := service.Process(context.Background(), msg, flags.DryRun)

	if flags.TestMode {
		reportTestResult(result)
	}

	switch result.Status {
	case core.StatusDelivered, core.StatusSkipped, core.StatusNoMatch,
		core.StatusRateLimited, core.StatusDryRun:
		return exitSuccess
	case core.StatusGenerationFailed, core.StatusDeliveryFailed:
		return exitProcessErr
	default:
		return exitTempFail
	}
}

// validate loads the configuration, reports every problem found and
// exits without reading any mail.
func validate(flags *di.Flags) int {
	cfg, err := config.New(flags.ConfigFile, flags.RulesFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return exitConfigErr
	}

	issues := cfg.Validate()
	if len(issues) > 0 {
		fmt.Println("Configuration errors:")
		for _, issue := range issues {
			fmt.Printf("  - %s\n", issue)
		}
		return exitConfigErr
	}

	fmt.Println("Configuration is valid!")
	fmt.Printf("  Settings: %s\n", cfg.SettingsPath())
	fmt.Printf("  Rules: %s\n", cfg.RulesPath())
	fmt.Printf("  Default LLM: %s\n", cfg.DefaultProvider())
	fmt.Printf("  Default delivery: %s\n", cfg.DefaultDeliveryMode())
	fmt.Printf("  Rules defined: %d\n", len(cfg.Rules()))
	return exitSuccess
}

func openInput(flags *di.Flags) (io.ReadCloser, error) {
	if flags.InputFile != "" {
		return os.Open(flags.InputFile)
	}
	return io.NopCloser(os.Stdin), nil
}

// reportTestResult prints a human-readable account of what processing
// decided, for operators piping a saved email through --test.
func reportTestResult(result core.Result) {
	switch result.Status {
	case core.StatusSkipped, core.StatusRateLimited:
		fmt.Printf("SKIP: %s\n", result.Reason)
		return
	case core.StatusNoMatch:
		fmt.Println("NO MATCH: No rule matched this email")
		return
	}

	if result.Rule != nil {
		fmt.Printf("MATCHED: %s\n", result.Rule.Name)
		fmt.Printf("  Provider: %s\n", result.Rule.LLMProvider)
		fmt.Printf("  Mode: %s\n", result.Rule.DeliveryMode)
	}

	if result.Reply != nil {
		fmt.Printf("\n--- Generated Reply ---\n")
		fmt.Printf("To: %s\n", result.Reply.ToAddress)
		fmt.Printf("Subject: %s\n", result.Reply.Subject)
		fmt.Printf("\n%s\n", result.Reply.Body)
		fmt.Printf("--- End Reply ---\n")
	}

	switch result.Status {
	case core.StatusDryRun:
		fmt.Printf("\nDRY RUN: Would %s reply\n", result.Rule.DeliveryMode)
	case core.StatusDelivered:
		fmt.Printf("\nDELIVERED: %s (ID: %s)\n", result.Delivery.Mode, result.Delivery.MessageID)
	case core.StatusGenerationFailed, core.StatusDeliveryFailed:
		fmt.Printf("\nFAILED: %s\n", result.Reason)
	}
}
