package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/mikey/mail-agent/internal/adapters/imapdraft"
	"github.com/mikey/mail-agent/internal/adapters/mailparse"
	"github.com/mikey/mail-agent/internal/config"
	"github.com/mikey/mail-agent/internal/core"
	"github.com/mikey/mail-agent/internal/logging"
)

var (
	configFile = flag.String("config", config.DefaultSettingsPath, "Path to settings file")
	rulesFile  = flag.String("rules", config.DefaultRulesPath, "Path to rules file")
	inputFile  = flag.String("file", "", "Email file to match against the rules (use stdin if not specified)")
	checkIMAP  = flag.Bool("check-imap", false, "Verify the IMAP connection and drafts folder")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog    = flag.Bool("json-log", false, "Output logs in JSON format")
)

func main() {
	flag.Parse()

	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.New(*configFile, *rulesFile)
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	if issues := cfg.Validate(); len(issues) > 0 {
		fmt.Println("Configuration is invalid:")
		for _, issue := range issues {
			fmt.Printf("  - %s\n", issue)
		}
		os.Exit(1)
	}
	fmt.Printf("Configuration is valid (%d rules loaded)\n", len(cfg.Rules()))

	if *checkIMAP {
		drafts := imapdraft.NewDrafts(cfg.GetIMAP(), logger)
		ok, detail := drafts.VerifyConnection()
		if !ok {
			fmt.Printf("IMAP check failed: %s\n", detail)
			os.Exit(1)
		}
		if detail != "" {
			fmt.Printf("IMAP check passed (%s)\n", detail)
		} else {
			fmt.Println("IMAP check passed")
		}
	}

	// Without an email to match there is nothing more to do.
	if *inputFile == "" && isTerminal(os.Stdin) {
		return
	}

	msg, err := readMessage(logger)
	if err != nil {
		logger.Fatal("Failed to read message", zap.Error(err))
	}

	fmt.Printf("\nFrom: %s\nTo: %v\nSubject: %s\n\n", msg.From, msg.To, msg.Subject)

	guard := core.NewSkipGuard()
	if skip, reason := guard.ShouldSkip(msg); skip {
		fmt.Printf("Message would be skipped: %s\n", reason)
	}

	matcher := core.NewRuleMatcher(cfg.Rules(), logger)

	// The operative first-match outcome, exactly as processing would
	// decide it. A matching skip rule outranks everything below it.
	outcome := matcher.Match(msg)
	switch {
	case outcome.Skipped:
		fmt.Println("Outcome: skip rule matched, no reply would be generated")
	case outcome.Matched():
		fmt.Printf("Outcome: rule %q wins (provider=%s, mode=%s)\n",
			outcome.Rule.Name, outcome.Rule.LLMProvider, outcome.Rule.DeliveryMode)
	default:
		fmt.Println("Outcome: no rule matches this message")
	}

	matches := matcher.MatchAll(msg)
	if len(matches) == 0 {
		return
	}

	fmt.Printf("\n%d non-skip rule(s) match, highest priority first:\n", len(matches))
	for _, rule := range matches {
		fmt.Printf("  %s (priority=%d, provider=%s, mode=%s)\n",
			rule.Name, rule.Priority, rule.LLMProvider, rule.DeliveryMode)
	}
}

func readMessage(logger *zap.Logger) (*core.Message, error) {
	parser := mailparse.NewParser(logger)

	if *inputFile != "" {
		file, err := os.Open(*inputFile)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		return parser.Parse(file)
	}
	return parser.Parse(os.Stdin)
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
