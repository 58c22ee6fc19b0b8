package game

import (
	"context"
	"log/slog"
	"time"
)

// CleanupCallback is called with the number of sessions a sweep removed.
type CleanupCallback func(removed int)

// StartReaper runs a background goroutine that periodically closes sessions
// that have been idle for longer than ttl.
func StartReaper(ctx context.Context, mgr *Manager, interval, ttl time.Duration, onCleanup CleanupCallback) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Session reaper started", "interval", interval, "ttl", ttl)

		for {
			select {
			case now := <-ticker.C:
				sweep(mgr, now, ttl, onCleanup)
			case <-ctx.Done():
				slog.Info("Session reaper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func sweep(mgr *Manager, now time.Time, ttl time.Duration, onCleanup CleanupCallback) {
	removed := mgr.Expire(now.Add(-ttl))
	if removed == 0 {
		return
	}
	slog.Info("Session reaper cleanup completed", "cleaned", removed, "remaining", mgr.Count())
	if onCleanup != nil {
		onCleanup(removed)
	}
}
