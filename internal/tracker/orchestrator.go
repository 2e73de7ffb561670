package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/loaderd/internal/apperr"
	"github.com/starford/loaderd/internal/models"
	"github.com/starford/loaderd/internal/snapshot"
	"github.com/starford/loaderd/internal/store"
)

// ErrNoResults marks a run aborted because the search returned nothing.
// It is a normal, retryable outcome: the topic goes to failed and becomes
// eligible again on its regular schedule.
var ErrNoResults = errors.New("no search results")

// searchResultCap is the fixed cap on search results per run.
const searchResultCap = 20

// MdPublisher stores a rendered markdown document and returns its
// shareable code.
type MdPublisher interface {
	Publish(content, filename, purpose, installPath string) (string, error)
}

// MdPublisherFunc adapts a function to the MdPublisher interface.
type MdPublisherFunc func(content, filename, purpose, installPath string) (string, error)

// Publish calls f.
func (f MdPublisherFunc) Publish(content, filename, purpose, installPath string) (string, error) {
	return f(content, filename, purpose, installPath)
}

// Orchestrator runs one topic's full pipeline: search, graph extraction,
// merge, summary, content drafts, snapshot save, markdown export, and
// relational bookkeeping. Status transitions prevent concurrent re-entry:
// running is persisted before the first network call, and the scheduler's
// due query excludes running topics. That gate is cooperative, not a hard
// lock; it is sufficient for single-process deployment.
type Orchestrator struct {
	db       *store.DB
	snaps    *snapshot.Store
	search   *SearchAgent
	graph    *GraphAgent
	content  *ContentAgent
	md       MdPublisher
	logger   *slog.Logger
	stepTime time.Duration
}

// NewOrchestrator wires the pipeline. stepTimeout bounds each external
// step; zero means a generous default.
func NewOrchestrator(db *store.DB, snaps *snapshot.Store, search *SearchAgent, graph *GraphAgent, content *ContentAgent, md MdPublisher, logger *slog.Logger, stepTimeout time.Duration) *Orchestrator {
	if stepTimeout <= 0 {
		stepTimeout = 2 * time.Minute
	}
	return &Orchestrator{
		db:       db,
		snaps:    snaps,
		search:   search,
		graph:    graph,
		content:  content,
		md:       md,
		logger:   logger,
		stepTime: stepTimeout,
	}
}

// Run executes the full pipeline for one topic. All failures are absorbed
// at this boundary: the topic is transitioned to failed, the error is
// logged and returned for the caller's information, and nothing panics
// through to the scheduler's sweep loop.
func (o *Orchestrator) Run(ctx context.Context, topicID int64) (err error) {
	topic, err := o.db.GetTopicByID(topicID)
	if err != nil {
		return err
	}

	log := o.logger.With(slog.Int64("topic_id", topic.ID), slog.String("topic", topic.Name))
	log.Info("run started")

	// Persist running before any network call so a concurrent sweep
	// does not select this topic as due.
	if err := o.db.SetRunStatus(topic.ID, models.RunRunning); err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("orchestrator: panic: %v", r)
		}
		if err != nil {
			log.Error("run failed", slog.String("error", err.Error()))
			if markErr := o.db.MarkTopicFailed(topic.ID, time.Now()); markErr != nil {
				log.Error("mark failed errored", slog.String("error", markErr.Error()))
			}
		}
	}()

	if err = o.pipeline(ctx, topic, log); err != nil {
		return err
	}

	if err = o.db.MarkTopicReady(topic.ID, time.Now()); err != nil {
		return err
	}
	log.Info("run completed")
	return nil
}

func (o *Orchestrator) pipeline(ctx context.Context, topic *models.Topic, log *slog.Logger) error {
	keywords := parseKeywords(topic.Keywords)

	searchCtx, cancel := context.WithTimeout(ctx, o.stepTime)
	results := o.search.Search(searchCtx, topic.Name, keywords, searchResultCap)
	cancel()
	if len(results) == 0 {
		return ErrNoResults
	}
	log.Info("search done", slog.Int("results", len(results)))

	previous := models.EmptyGraph()
	prevSnap, err := o.snaps.GetPrevious(topic.ID)
	switch {
	case err == nil:
		previous = prevSnap.Graph
	case errors.Is(err, apperr.ErrNotFound):
		// First run.
	default:
		return err
	}

	extractCtx, cancel := context.WithTimeout(ctx, o.stepTime)
	extracted := o.graph.BuildGraph(extractCtx, topic.Name, topic.Description, results, previous)
	cancel()

	merged, additions := MergeGraphs(previous, models.Graph{Nodes: extracted.Nodes, Edges: extracted.Edges})
	log.Info("graph merged",
		slog.Int("nodes", len(merged.Nodes)),
		slog.Int("edges", len(merged.Edges)),
		slog.Int("added_nodes", len(additions.Nodes)),
		slog.Int("added_edges", len(additions.Edges)))

	summaryCtx, cancel := context.WithTimeout(ctx, o.stepTime)
	summary := o.graph.Summarize(summaryCtx, topic.Name, merged, results)
	cancel()

	urls := make([]string, len(results))
	sources := make([]models.Source, len(results))
	for i, r := range results {
		urls[i] = r.URL
		origin := r.Origin
		if origin == "" {
			origin = "unknown"
		}
		sources[i] = models.Source{URL: r.URL, Title: r.Title, Origin: origin}
	}

	draftsCtx, cancel := context.WithTimeout(ctx, 4*o.stepTime)
	drafts := o.content.GenerateDrafts(draftsCtx, topic.Name, summary, extracted.ChangesFromPrevious, urls)
	cancel()

	snap := &models.Snapshot{
		Graph:               merged,
		Additions:           additions,
		ChangesFromPrevious: extracted.ChangesFromPrevious,
		Summary:             summary,
		Sources:             sources,
		ContentDrafts:       drafts,
	}

	locator, err := o.snaps.Save(topic.ID, snap)
	if err != nil {
		return err
	}

	// Re-read the mirror so the rendered document carries the store's
	// authoritative timestamp and version.
	saved, err := o.snaps.Get(topic.ID, "latest")
	if err != nil {
		return err
	}

	mdCode, err := o.publishMarkdown(topic, saved)
	if err != nil {
		return err
	}

	if err := o.db.InsertSnapshotRow(&models.SnapshotRow{
		TopicID:      topic.ID,
		SnapshotPath: locator,
		NodeCount:    len(merged.Nodes),
		EdgeCount:    len(merged.Edges),
		SourceCount:  len(sources),
		Summary:      summary,
		MdCode:       mdCode,
	}); err != nil {
		return err
	}

	log.Info("snapshot saved",
		slog.String("locator", locator),
		slog.Int("version", saved.Version),
		slog.String("md_code", mdCode))
	return nil
}

// publishMarkdown renders the snapshot with up to five recent predecessors
// and stores the document for sharing.
func (o *Orchestrator) publishMarkdown(topic *models.Topic, snap *models.Snapshot) (string, error) {
	entries, err := o.snaps.List(topic.ID)
	if err != nil {
		return "", err
	}

	recent := []*models.Snapshot{}
	for i, e := range entries {
		if i == mdRecentSnapshots {
			break
		}
		s, err := o.snaps.Get(topic.ID, e.Timestamp)
		if err != nil {
			continue
		}
		recent = append(recent, s)
	}

	content := RenderMarkdown(topic.Name, topic.Description, snap, recent)
	return o.md.Publish(
		content,
		topic.Name+".md",
		"Knowledge tracking snapshot for: "+topic.Name,
		"anywhere",
	)
}

// parseKeywords decodes the stored keyword JSON, treating malformed data
// as an empty list.
func parseKeywords(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}
