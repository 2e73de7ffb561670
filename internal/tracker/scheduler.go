package tracker

import (
	"context"
	"log/slog"
	"time"

	"github.com/starford/loaderd/internal/models"
	"github.com/starford/loaderd/internal/store"
)

// Scheduler periodically finds topics whose recurrence interval has
// elapsed and runs them through the orchestrator, one at a time. It is a
// plain object owned by the composition root; there is no process-wide
// scheduler handle.
type Scheduler struct {
	db         *store.DB
	orch       *Orchestrator
	tick       time.Duration
	topicDelay time.Duration
	logger     *slog.Logger
}

// NewScheduler creates a scheduler. tick defaults to 15 minutes and
// topicDelay, the pause between consecutive topic runs within one sweep,
// defaults to 5 seconds.
func NewScheduler(db *store.DB, orch *Orchestrator, tick, topicDelay time.Duration, logger *slog.Logger) *Scheduler {
	if tick <= 0 {
		tick = 15 * time.Minute
	}
	if topicDelay < 0 {
		topicDelay = 5 * time.Second
	}
	return &Scheduler{db: db, orch: orch, tick: tick, topicDelay: topicDelay, logger: logger}
}

// Run drives sweeps on a fixed tick until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("scheduler started", slog.Duration("tick", s.tick))
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep selects due topics and runs them sequentially. One topic's
// failure (absorbed inside the orchestrator) never stops the sweep.
func (s *Scheduler) Sweep(ctx context.Context) {
	due, err := s.DueTopics(time.Now())
	if err != nil {
		s.logger.Error("due query failed", slog.String("error", err.Error()))
		return
	}
	if len(due) == 0 {
		s.logger.Debug("no topics due")
		return
	}
	s.logger.Info("sweep", slog.Int("due", len(due)))

	for i, topic := range due {
		if ctx.Err() != nil {
			return
		}
		if err := s.orch.Run(ctx, topic.ID); err != nil {
			s.logger.Warn("topic run failed",
				slog.Int64("topic_id", topic.ID),
				slog.String("error", err.Error()))
		}
		// Pause between topics to bound load on search/LLM providers.
		if s.topicDelay > 0 && i < len(due)-1 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.topicDelay):
			}
		}
	}
}

// DueTopics returns active, non-running topics that have never been
// searched or whose recurrence interval has elapsed since the last search.
func (s *Scheduler) DueTopics(now time.Time) ([]models.Topic, error) {
	candidates, err := s.db.ListRunCandidates()
	if err != nil {
		return nil, err
	}

	due := []models.Topic{}
	for _, t := range candidates {
		if t.LastSearchedAt == nil {
			due = append(due, t)
			continue
		}
		interval := time.Duration(t.IntervalHours) * time.Hour
		if now.Sub(*t.LastSearchedAt) >= interval {
			due = append(due, t)
		}
	}
	return due, nil
}
