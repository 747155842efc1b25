package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// MySQLHistory is a MySQL-backed reply history, for setups where
// several mail hosts share one limit.
type MySQLHistory struct {
	db          *sql.DB
	retention   time.Duration
	cleanupFreq time.Duration
	logger      *zap.Logger
	stopCh      chan struct{}
}

// NewMySQLHistory connects to the history database identified by dsn.
func NewMySQLHistory(dsn string, retention, cleanupFreq time.Duration, logger *zap.Logger) (*MySQLHistory, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS reply_history (
			sender VARCHAR(255) NOT NULL,
			replied_at BIGINT NOT NULL,
			INDEX idx_reply_history_sender (sender, replied_at)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	h := &MySQLHistory{
		db:          db,
		retention:   retention,
		cleanupFreq: cleanupFreq,
		logger:      logger,
		stopCh:      make(chan struct{}),
	}

	go h.startCleanupTask()

	return h, nil
}

// Count returns how many replies were recorded for sender within the
// trailing window.
func (h *MySQLHistory) Count(ctx context.Context, sender string, window time.Duration) (int, error) {
	cutoff := time.Now().Add(-window).Unix()

	var count int
	err := h.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM reply_history
		WHERE sender = ? AND replied_at > ?
	`, sender, cutoff).Scan(&count)
	if err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to query reply history: %w", err)
	}

	return count, nil
}

// Record notes that a reply was delivered to sender now.
func (h *MySQLHistory) Record(ctx context.Context, sender string) error {
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO reply_history (sender, replied_at) VALUES (?, ?)
	`, sender, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to record reply: %w", err)
	}
	return nil
}

// Cleanup removes entries older than the retention period.
func (h *MySQLHistory) Cleanup(ctx context.Context) error {
	cutoff := time.Now().Add(-h.retention).Unix()

	result, err := h.db.ExecContext(ctx, `
		DELETE FROM reply_history WHERE replied_at <= ?
	`, cutoff)
	if err != nil {
		return fmt.Errorf("failed to clean up reply history: %w", err)
	}

	if pruned, err := result.RowsAffected(); err == nil {
		h.logger.Debug("Cleaned up reply history", zap.Int64("pruned", pruned))
	}

	return nil
}

func (h *MySQLHistory) startCleanupTask() {
	ticker := time.NewTicker(h.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := h.Cleanup(context.Background()); err != nil {
				h.logger.Error("Failed to clean up reply history", zap.Error(err))
			}
		case <-h.stopCh:
			return
		}
	}
}

// Stop stops the background cleanup task and closes the database.
func (h *MySQLHistory) Stop() {
	close(h.stopCh)
	if err := h.db.Close(); err != nil {
		h.logger.Error("Failed to close MySQL connection", zap.Error(err))
	}
}
