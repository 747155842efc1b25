package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteHistory is a SQLite-backed reply history. It persists across
// pipe invocations, which is what makes the rate limit effective for
// the one-shot design.
type SQLiteHistory struct {
	db          *sql.DB
	retention   time.Duration
	cleanupFreq time.Duration
	logger      *zap.Logger
	stopCh      chan struct{}
}

// NewSQLiteHistory opens (and if needed initializes) the history
// database at dbPath.
func NewSQLiteHistory(dbPath string, retention, cleanupFreq time.Duration, logger *zap.Logger) (*SQLiteHistory, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS reply_history (
			sender TEXT NOT NULL,
			replied_at INTEGER NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_reply_history_sender ON reply_history(sender, replied_at)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	h := &SQLiteHistory{
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
func (h *SQLiteHistory) Count(ctx context.Context, sender string, window time.Duration) (int, error) {
	cutoff := time.Now().Add(-window).Unix()

	var count int
	err := h.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM reply_history
		WHERE sender = ? AND replied_at > ?
	`, sender, cutoff).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to query reply history: %w", err)
	}

	return count, nil
}

// Record notes that a reply was delivered to sender now.
func (h *SQLiteHistory) Record(ctx context.Context, sender string) error {
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO reply_history (sender, replied_at) VALUES (?, ?)
	`, sender, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to record reply: %w", err)
	}
	return nil
}

// Cleanup removes entries older than the retention period.
func (h *SQLiteHistory) Cleanup(ctx context.Context) error {
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

func (h *SQLiteHistory) startCleanupTask() {
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
func (h *SQLiteHistory) Stop() {
	close(h.stopCh)
	if err := h.db.Close(); err != nil {
		h.logger.Error("Failed to close SQLite database", zap.Error(err))
	}
}
