package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mikey/mail-agent/internal/adapters/history"
	"github.com/mikey/mail-agent/internal/config"
	"github.com/mikey/mail-agent/internal/core"
)

// HistoryFactory creates reply-history stores based on configuration.
type HistoryFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewHistoryFactory creates a new history factory.
func NewHistoryFactory(cfg *config.Config, logger *zap.Logger) *HistoryFactory {
	return &HistoryFactory{cfg: cfg, logger: logger}
}

// CreateHistory creates the configured reply-history store. Returns nil
// when rate limiting is disabled.
func (f *HistoryFactory) CreateHistory() (core.ReplyHistory, error) {
	limitCfg := f.cfg.GetRateLimit()
	if !limitCfg.Enabled {
		return nil, nil
	}

	switch limitCfg.Store {
	case "memory":
		return history.NewMemoryHistory(limitCfg.Window, limitCfg.CleanupFrequency, f.logger), nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(limitCfg.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
		return history.NewSQLiteHistory(limitCfg.SQLitePath, limitCfg.Window, limitCfg.CleanupFrequency, f.logger)
	case "mysql":
		return history.NewMySQLHistory(limitCfg.MySQLDSN, limitCfg.Window, limitCfg.CleanupFrequency, f.logger)
	default:
		return nil, fmt.Errorf("unsupported history store: %s", limitCfg.Store)
	}
}

// RateLimit returns the core rate limit settings.
func (f *HistoryFactory) RateLimit() core.RateLimit {
	limitCfg := f.cfg.GetRateLimit()
	return core.RateLimit{
		Enabled:    limitCfg.Enabled,
		MaxReplies: limitCfg.MaxReplies,
		Window:     limitCfg.Window,
	}
}
