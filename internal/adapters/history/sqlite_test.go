package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestSQLiteHistory(t *testing.T) *SQLiteHistory {
	t.Helper()
	h, err := NewSQLiteHistory(filepath.Join(t.TempDir(), "history.db"), time.Hour, time.Hour, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(h.Stop)
	return h
}

func TestSQLiteHistoryCountAndRecord(t *testing.T) {
	h := newTestSQLiteHistory(t)
	ctx := context.Background()

	count, err := h.Count(ctx, "boss@corp.com", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	require.NoError(t, h.Record(ctx, "boss@corp.com"))
	require.NoError(t, h.Record(ctx, "boss@corp.com"))

	count, err = h.Count(ctx, "boss@corp.com", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = h.Count(ctx, "other@example.com", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestSQLiteHistoryCleanup(t *testing.T) {
	h := newTestSQLiteHistory(t)
	ctx := context.Background()

	stale := time.Now().Add(-3 * time.Hour).Unix()
	_, err := h.db.ExecContext(ctx, `INSERT INTO reply_history (sender, replied_at) VALUES (?, ?)`,
		"stale@example.com", stale)
	require.NoError(t, err)
	require.NoError(t, h.Record(ctx, "fresh@example.com"))

	require.NoError(t, h.Cleanup(ctx))

	count, err := h.Count(ctx, "stale@example.com", 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	count, err = h.Count(ctx, "fresh@example.com", 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
