// Package history provides reply-history stores backing the sender
// rate limit.
package history

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MemoryHistory is an in-memory reply history. Entries older than the
// retention period are pruned by a background janitor. Suitable for a
// long-lived service; for the one-shot pipe invocation it simply means
// the limit is not enforced across processes.
type MemoryHistory struct {
	mu          sync.RWMutex
	entries     map[string][]time.Time
	retention   time.Duration
	cleanupFreq time.Duration
	logger      *zap.Logger
	stopCh      chan struct{}
}

// NewMemoryHistory creates an in-memory history retaining entries for
// the given period.
func NewMemoryHistory(retention, cleanupFreq time.Duration, logger *zap.Logger) *MemoryHistory {
	h := &MemoryHistory{
		entries:     make(map[string][]time.Time),
		retention:   retention,
		cleanupFreq: cleanupFreq,
		logger:      logger,
		stopCh:      make(chan struct{}),
	}

	go h.startCleanupTask()

	return h
}

// Count returns how many replies were recorded for sender within the
// trailing window.
func (h *MemoryHistory) Count(_ context.Context, sender string, window time.Duration) (int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	cutoff := time.Now().Add(-window)
	count := 0
	for _, at := range h.entries[sender] {
		if at.After(cutoff) {
			count++
		}
	}
	return count, nil
}

// Record notes that a reply was delivered to sender now.
func (h *MemoryHistory) Record(_ context.Context, sender string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries[sender] = append(h.entries[sender], time.Now())
	return nil
}

// Cleanup removes entries older than the retention period.
func (h *MemoryHistory) Cleanup(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	cutoff := time.Now().Add(-h.retention)
	pruned := 0
	for sender, times := range h.entries {
		kept := times[:0]
		for _, at := range times {
			if at.After(cutoff) {
				kept = append(kept, at)
			} else {
				pruned++
			}
		}
		if len(kept) == 0 {
			delete(h.entries, sender)
		} else {
			h.entries[sender] = kept
		}
	}

	h.logger.Debug("Cleaned up reply history", zap.Int("pruned", pruned))
	return nil
}

func (h *MemoryHistory) startCleanupTask() {
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

// Stop stops the background cleanup task.
func (h *MemoryHistory) Stop() {
	close(h.stopCh)
}
