package config

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mikey/mail-agent/internal/core"
)

// Default locations used when the binary is invoked without flags, e.g.
// from a Postfix master.cf pipe entry.
const (
	DefaultSettingsPath = "/etc/mail-agent/settings.yaml"
	DefaultRulesPath    = "/etc/mail-agent/rules.yaml"
)

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Config holds the application settings and the loaded rule set. Rules
// are filtered to enabled ones and sorted by descending priority here,
// once, so the matcher's first-match selection is deterministic.
type Config struct {
	v        *viper.Viper
	allRules []rawRule
	rules    []core.Rule

	settingsPath string
	rulesPath    string
}

// rawRule mirrors core.Rule but keeps optional fields nullable so the
// loader can tell "absent" from "false" and apply defaults.
type rawRule struct {
	Name            string            `mapstructure:"name"`
	SenderPattern   string            `mapstructure:"sender_pattern"`
	RecipientFilter string            `mapstructure:"recipient_filter"`
	HeadersMatch    map[string]string `mapstructure:"headers_match"`
	LLMProvider     string            `mapstructure:"llm_provider"`
	DeliveryMode    string            `mapstructure:"delivery_mode"`
	SystemPrompt    string            `mapstructure:"system_prompt"`
	Priority        int               `mapstructure:"priority"`
	Enabled         *bool             `mapstructure:"enabled"`
	Action          string            `mapstructure:"action"`
}

// New loads settings and rules from the given paths. Empty paths fall
// back to the defaults. Environment variables override settings via the
// MAIL_AGENT prefix, and ${VAR} references inside setting values are
// expanded, so credentials can live outside the YAML files.
func New(settingsPath, rulesPath string) (*Config, error) {
	if settingsPath == "" {
		settingsPath = DefaultSettingsPath
	}
	if rulesPath == "" {
		rulesPath = DefaultRulesPath
	}

	v := viper.New()
	v.SetConfigFile(settingsPath)
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix("MAIL_AGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read settings file %s: %w", settingsPath, err)
	}

	cfg := &Config{
		v:            v,
		settingsPath: settingsPath,
		rulesPath:    rulesPath,
	}

	if err := cfg.loadRules(rulesPath); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setDefaults sets the default configuration values.
func setDefaults(v *viper.Viper) {
	// LLM defaults
	v.SetDefault("llm.default_provider", "openai")

	// Mail (SMTP) defaults
	v.SetDefault("mail.smtp_host", "localhost")
	v.SetDefault("mail.smtp_port", 25)
	v.SetDefault("mail.use_tls", false)
	v.SetDefault("mail.use_starttls", false)

	// IMAP defaults
	v.SetDefault("imap.port", 993)
	v.SetDefault("imap.use_ssl", true)
	v.SetDefault("imap.drafts_folder", "Drafts")

	// Delivery defaults
	v.SetDefault("delivery.default_mode", "send")

	// Rate limiting defaults
	v.SetDefault("rate_limiting.enabled", false)
	v.SetDefault("rate_limiting.max_replies_per_sender", 5)
	v.SetDefault("rate_limiting.window", "24h")
	v.SetDefault("rate_limiting.store", "memory")
	v.SetDefault("rate_limiting.cleanup_frequency", "1h")
	v.SetDefault("rate_limiting.sqlite_path", "/var/lib/mail-agent/history.db")
	v.SetDefault("rate_limiting.mysql_dsn", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", "")
}

// loadRules reads the rules document, applies per-rule defaults and
// computes the matcher ordering: enabled rules only, descending
// priority, declaration order preserved on ties.
func (c *Config) loadRules(path string) error {
	rv := viper.New()
	rv.SetConfigFile(path)

	if err := rv.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read rules file %s: %w", path, err)
	}

	var raw []rawRule
	if err := rv.UnmarshalKey("rules", &raw); err != nil {
		return fmt.Errorf("invalid rules in %s: %w", path, err)
	}

	c.allRules = raw

	defaultProvider := c.DefaultProvider()
	defaultMode := c.DefaultDeliveryMode()

	rules := make([]core.Rule, 0, len(raw))
	for _, r := range raw {
		if r.Enabled != nil && !*r.Enabled {
			continue
		}
		rule := core.Rule{
			Name:            r.Name,
			SenderPattern:   r.SenderPattern,
			RecipientFilter: r.RecipientFilter,
			HeadersMatch:    r.HeadersMatch,
			LLMProvider:     r.LLMProvider,
			DeliveryMode:    r.DeliveryMode,
			SystemPrompt:    r.SystemPrompt,
			Priority:        r.Priority,
			Enabled:         true,
			Action:          r.Action,
		}
		if rule.Name == "" {
			rule.Name = "Unnamed Rule"
		}
		if rule.SenderPattern == "" {
			rule.SenderPattern = ".*"
		}
		if rule.LLMProvider == "" {
			rule.LLMProvider = defaultProvider
		}
		if rule.DeliveryMode == "" {
			rule.DeliveryMode = defaultMode
		}
		rules = append(rules, rule)
	}

	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Priority > rules[j].Priority
	})

	c.rules = rules
	return nil
}

// Rules returns the enabled rules in matcher order.
func (c *Config) Rules() []core.Rule {
	return c.rules
}

// SettingsPath returns the path the settings were loaded from.
func (c *Config) SettingsPath() string {
	return c.settingsPath
}

// RulesPath returns the path the rules were loaded from.
func (c *Config) RulesPath() string {
	return c.rulesPath
}

// GetString gets a string value from the configuration with ${VAR}
// references expanded from the environment.
func (c *Config) GetString(key string) string {
	return expandEnvVars(c.v.GetString(key))
}

// GetInt gets an integer value from the configuration.
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetBool gets a boolean value from the configuration.
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetFloat64 gets a float64 value from the configuration.
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetDuration parses a duration value from the configuration.
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// IsSet reports whether the key exists in the settings.
func (c *Config) IsSet(key string) bool {
	return c.v.IsSet(key)
}

// expandEnvVars replaces ${VAR} references with environment values.
// Unset variables expand to the empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := match[2 : len(match)-1]
		return os.Getenv(name)
	})
}

// Validate checks the loaded configuration and returns every problem
// found, empty when the configuration is usable.
func (c *Config) Validate() []string {
	var errors []string

	if !c.v.IsSet("llm") {
		errors = append(errors, "no LLM configuration found")
	} else if !c.v.IsSet("llm.providers." + c.DefaultProvider()) {
		errors = append(errors, fmt.Sprintf("default LLM provider %q not configured", c.DefaultProvider()))
	}

	if !c.v.IsSet("mail") {
		errors = append(errors, "no mail (SMTP) configuration found")
	} else if c.GetString("mail.from_address") == "" {
		errors = append(errors, "mail.from_address is required")
	}

	if c.DefaultDeliveryMode() == "draft" && !c.v.IsSet("imap") {
		errors = append(errors, "IMAP configuration required for draft delivery mode")
	}

	if len(c.allRules) == 0 {
		errors = append(errors, "no auto-reply rules defined")
	}

	for i, rule := range c.allRules {
		if rule.Name == "" {
			errors = append(errors, fmt.Sprintf("rule %d: name is required", i))
		}
		if rule.SenderPattern == "" {
			errors = append(errors, fmt.Sprintf("rule %d: sender_pattern is required", i))
		}
		if rule.SystemPrompt == "" && rule.Action != "skip" {
			errors = append(errors, fmt.Sprintf("rule %d: system_prompt is required", i))
		}
	}

	return errors
}
