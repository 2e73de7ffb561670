package tracker

import (
	"context"
	"log/slog"

	"github.com/starford/loaderd/internal/apperr"
	"github.com/starford/loaderd/internal/models"
	"github.com/starford/loaderd/internal/store"
)

// Runner executes manual "run now" requests through a bounded queue with
// a single worker, so a burst of triggers cannot fan out into parallel
// provider calls. Callers observe progress by polling the topic's
// run_status; Enqueue itself only admits or rejects the request.
type Runner struct {
	db     *store.DB
	orch   *Orchestrator
	jobs   chan int64
	logger *slog.Logger
}

// NewRunner creates a runner with the given queue capacity.
func NewRunner(db *store.DB, orch *Orchestrator, queueSize int, logger *slog.Logger) *Runner {
	if queueSize <= 0 {
		queueSize = 16
	}
	return &Runner{
		db:     db,
		orch:   orch,
		jobs:   make(chan int64, queueSize),
		logger: logger,
	}
}

// Run consumes queued topic runs until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case topicID := <-r.jobs:
			if err := r.orch.Run(ctx, topicID); err != nil {
				r.logger.Warn("queued run failed",
					slog.Int64("topic_id", topicID),
					slog.String("error", err.Error()))
			}
		}
	}
}

// Enqueue admits a topic for execution. A topic that is already running
// is rejected with ErrConflict (the run-status gate), as is a full queue.
func (r *Runner) Enqueue(topicID int64) error {
	topic, err := r.db.GetTopicByID(topicID)
	if err != nil {
		return err
	}
	if topic.RunStatus == models.RunRunning {
		return apperr.ErrConflict
	}
	select {
	case r.jobs <- topicID:
		return nil
	default:
		return apperr.ErrConflict
	}
}
