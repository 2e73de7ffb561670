// Package cleanup removes expired uploaded backups on a timer.
package cleanup

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/starford/loaderd/internal/store"
)

const defaultInterval = time.Hour

// Sweeper deletes backup rows past their TTL and unlinks their files.
type Sweeper struct {
	db       *store.DB
	interval time.Duration
	logger   *slog.Logger
}

func NewSweeper(db *store.DB, logger *slog.Logger) *Sweeper {
	return &Sweeper{db: db, interval: defaultInterval, logger: logger}
}

// Run sweeps once immediately, then on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	s.Sweep(time.Now())
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Sweep(now)
		}
	}
}

// Sweep removes expired rows first, then unlinks files. A file that is
// already gone is not an error; a file that cannot be removed is logged
// and retried implicitly on the next expired row that shares its path.
func (s *Sweeper) Sweep(now time.Time) {
	paths, err := s.db.DeleteExpiredBackups(now)
	if err != nil {
		s.logger.Error("backup cleanup failed", slog.String("error", err.Error()))
		return
	}
	removed := 0
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("could not remove backup file",
				slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		removed++
	}
	if len(paths) > 0 {
		s.logger.Info("expired backups removed",
			slog.Int("rows", len(paths)), slog.Int("files", removed))
	}
}
