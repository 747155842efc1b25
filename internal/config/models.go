package config

import "time"

// MailConfig represents the outbound SMTP configuration.
type MailConfig struct {
	FromAddress  string
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	UseTLS       bool
	UseStartTLS  bool
}

// IMAPConfig represents the IMAP configuration for draft delivery.
type IMAPConfig struct {
	Host         string
	Port         int
	UseSSL       bool
	Username     string
	Password     string
	DraftsFolder string
}

// ProviderConfig represents the configuration block for one LLM
// provider. Fields that do not apply to a backend are left zero.
type ProviderConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Region      string
	Timeout     time.Duration
	MaxTokens   int
	MaxBodySize int
}

// RateLimitConfig represents the reply rate limiting configuration.
type RateLimitConfig struct {
	Enabled          bool
	MaxReplies       int
	Window           time.Duration
	Store            string
	SQLitePath       string
	MySQLDSN         string
	CleanupFrequency time.Duration
}

// LoggingConfig represents the logging configuration.
type LoggingConfig struct {
	Level  string
	Format string
	File   string
}

// GetMail returns the SMTP configuration.
func (c *Config) GetMail() MailConfig {
	return MailConfig{
		FromAddress:  c.GetString("mail.from_address"),
		SMTPHost:     c.GetString("mail.smtp_host"),
		SMTPPort:     c.GetInt("mail.smtp_port"),
		SMTPUser:     c.GetString("mail.smtp_user"),
		SMTPPassword: c.GetString("mail.smtp_password"),
		UseTLS:       c.GetBool("mail.use_tls"),
		UseStartTLS:  c.GetBool("mail.use_starttls"),
	}
}

// GetIMAP returns the IMAP configuration.
func (c *Config) GetIMAP() IMAPConfig {
	return IMAPConfig{
		Host:         c.GetString("imap.host"),
		Port:         c.GetInt("imap.port"),
		UseSSL:       c.GetBool("imap.use_ssl"),
		Username:     c.GetString("imap.username"),
		Password:     c.GetString("imap.password"),
		DraftsFolder: c.GetString("imap.drafts_folder"),
	}
}

// DefaultProvider returns the default LLM provider name.
func (c *Config) DefaultProvider() string {
	return c.GetString("llm.default_provider")
}

// DefaultDeliveryMode returns the default delivery mode.
func (c *Config) DefaultDeliveryMode() string {
	return c.GetString("delivery.default_mode")
}

// HasProvider reports whether a configuration block exists for the
// named provider.
func (c *Config) HasProvider(name string) bool {
	return c.v.IsSet("llm.providers." + name)
}

// GetProvider returns the configuration block for the named provider.
// Timeout and token limits fall back to the shared defaults when unset.
func (c *Config) GetProvider(name string) ProviderConfig {
	prefix := "llm.providers." + name + "."

	cfg := ProviderConfig{
		APIKey:      c.GetString(prefix + "api_key"),
		Model:       c.GetString(prefix + "model"),
		BaseURL:     c.GetString(prefix + "base_url"),
		Region:      c.GetString(prefix + "region"),
		MaxTokens:   c.GetInt(prefix + "max_tokens"),
		MaxBodySize: c.GetInt(prefix + "max_body_size"),
	}

	if timeout, err := c.GetDuration(prefix + "timeout"); err == nil && timeout > 0 {
		cfg.Timeout = timeout
	} else {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}

	return cfg
}

// GetRateLimit returns the rate limiting configuration. Malformed
// durations fall back to the defaults rather than failing, since rate
// limiting is best-effort.
func (c *Config) GetRateLimit() RateLimitConfig {
	window, err := c.GetDuration("rate_limiting.window")
	if err != nil || window <= 0 {
		window = 24 * time.Hour
	}
	cleanup, err := c.GetDuration("rate_limiting.cleanup_frequency")
	if err != nil || cleanup <= 0 {
		cleanup = time.Hour
	}

	return RateLimitConfig{
		Enabled:          c.GetBool("rate_limiting.enabled"),
		MaxReplies:       c.GetInt("rate_limiting.max_replies_per_sender"),
		Window:           window,
		Store:            c.GetString("rate_limiting.store"),
		SQLitePath:       c.GetString("rate_limiting.sqlite_path"),
		MySQLDSN:         c.GetString("rate_limiting.mysql_dsn"),
		CleanupFrequency: cleanup,
	}
}

// GetLogging returns the logging configuration.
func (c *Config) GetLogging() LoggingConfig {
	return LoggingConfig{
		Level:  c.GetString("logging.level"),
		Format: c.GetString("logging.format"),
		File:   c.GetString("logging.file"),
	}
}
