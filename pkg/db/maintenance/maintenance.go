package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"simmotion/pkg/db"
	"simmotion/pkg/store"
)

const loadTableStateKey = "load_table_mtime"

// SessionRetention is how long ended sessions are kept.
const SessionRetention = 90 * 24 * time.Hour

// Maintainer is the slice of the store maintenance needs.
type Maintainer interface {
	store.StateStore
	CloseDanglingSessions(ctx context.Context) (int64, error)
}

// Run executes all maintenance tasks: session cleanup and the load table check.
// It blocks until completion.
func Run(ctx context.Context, s Maintainer, d *db.DB, loadTablePath string) error {
	slog.Info("Starting database maintenance...")

	if n, err := s.CloseDanglingSessions(ctx); err != nil {
		slog.Error("Closing dangling sessions failed", "error", err)
	} else if n > 0 {
		slog.Warn("Closed sessions left open by a previous run", "count", n)
	}

	if n, err := d.PruneSessions(SessionRetention); err != nil {
		slog.Error("Session pruning failed", "error", err)
	} else {
		slog.Info("Session pruning completed", "removed", n)
	}

	changed, err := checkLoadTable(ctx, s, loadTablePath)
	if err != nil {
		slog.Error("Load table check failed", "error", err)
	} else if changed {
		slog.Info("Load table changed since last run, hysteresis calibration applies from now", "path", loadTablePath)
	}

	return nil
}

// checkLoadTable compares the load table modification time against the one
// recorded on the previous run and records the new one.
func checkLoadTable(ctx context.Context, s store.StateStore, path string) (bool, error) {
	if path == "" {
		return false, nil
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat load table: %w", err)
	}

	mtime := info.ModTime().UTC().Format(time.RFC3339)
	stored, found := s.GetState(ctx, loadTableStateKey)
	if found && stored == mtime {
		return false, nil
	}

	if err := s.SetState(ctx, loadTableStateKey, mtime); err != nil {
		return false, fmt.Errorf("failed to update state: %w", err)
	}
	return true, nil
}
