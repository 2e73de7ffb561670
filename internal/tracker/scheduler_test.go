package tracker

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/starford/loaderd/internal/models"
	"github.com/starford/loaderd/internal/store"
	"github.com/starford/loaderd/internal/testutil"
)

func seedTopic(t *testing.T, db *store.DB, name string, intervalHours int, lastSearched *time.Time, status models.TopicStatus, run models.RunStatus) *models.Topic {
	t.Helper()
	topic := &models.Topic{
		UserID:        "usr_test",
		Name:          name,
		IntervalHours: intervalHours,
		Status:        status,
	}
	if err := db.CreateTopic(topic); err != nil {
		t.Fatal(err)
	}
	if run != "" && run != models.RunPending {
		if err := db.SetRunStatus(topic.ID, run); err != nil {
			t.Fatal(err)
		}
	}
	if lastSearched != nil {
		if err := db.MarkTopicReady(topic.ID, *lastSearched); err != nil {
			t.Fatal(err)
		}
		// MarkTopicReady sets ready; restore the requested run status.
		if run != "" && run != models.RunReady {
			if err := db.SetRunStatus(topic.ID, run); err != nil {
				t.Fatal(err)
			}
		}
	}
	return topic
}

func TestDueTopics(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db := testutil.TestDB(t)
	s := NewScheduler(db, nil, 0, 0, logger)

	now := time.Now().UTC()
	halfAgo := now.Add(-12 * time.Hour)
	longAgo := now.Add(-36 * time.Hour)

	never := seedTopic(t, db, "never searched", 24, nil, models.TopicActive, models.RunPending)
	fresh := seedTopic(t, db, "searched recently", 24, &halfAgo, models.TopicActive, models.RunReady)
	stale := seedTopic(t, db, "interval elapsed", 24, &longAgo, models.TopicActive, models.RunReady)
	seedTopic(t, db, "paused", 24, &longAgo, models.TopicPaused, models.RunReady)
	seedTopic(t, db, "running", 24, &longAgo, models.TopicActive, models.RunRunning)

	due, err := s.DueTopics(now)
	if err != nil {
		t.Fatal(err)
	}

	ids := map[int64]bool{}
	for _, topic := range due {
		ids[topic.ID] = true
	}
	if len(due) != 2 {
		t.Fatalf("due = %d topics, want 2 (got %v)", len(due), ids)
	}
	if !ids[never.ID] {
		t.Error("never-searched topic must be due")
	}
	if !ids[stale.ID] {
		t.Error("elapsed-interval topic must be due")
	}
	if ids[fresh.ID] {
		t.Error("recently searched topic must not be due")
	}
}

func TestDueTopicsExactBoundary(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db := testutil.TestDB(t)
	s := NewScheduler(db, nil, 0, 0, logger)

	now := time.Now().UTC()
	exactly := now.Add(-24 * time.Hour)
	seedTopic(t, db, "on the boundary", 24, &exactly, models.TopicActive, models.RunReady)

	due, err := s.DueTopics(now)
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 1 {
		t.Fatalf("elapsed == interval must be due, got %d", len(due))
	}
}

func TestSweepRunsDueTopics(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db := testutil.TestDB(t)
	snaps := testutil.TestSnapshots(t)

	md := MdPublisherFunc(func(content, filename, purpose, installPath string) (string, error) {
		return "CODE00", nil
	})
	orch := NewOrchestrator(db, snaps,
		NewSearchAgent(&stubSearcher{results: results("https://a")}, logger),
		NewGraphAgent(nil, logger),
		NewContentAgent(nil, logger),
		md, logger, 0)
	s := NewScheduler(db, orch, 0, 0, logger)

	first := seedTopic(t, db, "due now", 24, nil, models.TopicActive, models.RunPending)
	second := seedTopic(t, db, "also due", 24, nil, models.TopicActive, models.RunPending)

	s.Sweep(context.Background())

	for _, id := range []int64{first.ID, second.ID} {
		got, err := db.GetTopicByID(id)
		if err != nil {
			t.Fatal(err)
		}
		if got.RunStatus != models.RunReady {
			t.Errorf("swept topic %d run_status = %s, want ready", id, got.RunStatus)
		}
	}
}

func TestRunnerEnqueue(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db := testutil.TestDB(t)
	snaps := testutil.TestSnapshots(t)

	orch := NewOrchestrator(db, snaps,
		NewSearchAgent(nil, logger),
		NewGraphAgent(nil, logger),
		NewContentAgent(nil, logger),
		MdPublisherFunc(func(_, _, _, _ string) (string, error) { return "CODE00", nil }),
		logger, 0)
	r := NewRunner(db, orch, 1, logger)

	topic := seedTopic(t, db, "manual", 24, nil, models.TopicActive, models.RunPending)

	if err := r.Enqueue(topic.ID); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	// Queue capacity 1 and no worker draining: the second enqueue is
	// rejected rather than blocking the caller.
	other := seedTopic(t, db, "second", 24, nil, models.TopicActive, models.RunPending)
	if err := r.Enqueue(other.ID); err == nil {
		t.Fatal("full queue must reject")
	}
}

func TestRunnerRejectsRunningTopic(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db := testutil.TestDB(t)
	r := NewRunner(db, nil, 4, logger)

	topic := seedTopic(t, db, "busy", 24, nil, models.TopicActive, models.RunRunning)
	if err := r.Enqueue(topic.ID); err == nil {
		t.Fatal("running topic must be rejected")
	}

	if err := r.Enqueue(12345); err == nil {
		t.Fatal("unknown topic must be rejected")
	}
}
