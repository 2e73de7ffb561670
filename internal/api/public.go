package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/starford/loaderd/internal/apperr"
	"github.com/starford/loaderd/internal/models"
	"github.com/starford/loaderd/internal/snapshot"
	"github.com/starford/loaderd/internal/store"
)

// publicHandler serves the unauthenticated discovery surface: browsing
// public topics and reading their latest snapshots.
type publicHandler struct {
	db     *store.DB
	snaps  *snapshot.Store
	logger *slog.Logger
}

// list returns public, active topics with cursor pagination, keyword
// filtering, and latest-snapshot counts folded in from the index.
func (h *publicHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	topics, next, hasMore, err := h.db.ListPublicTopics(limit, q.Get("cursor"), q.Get("keyword"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid cursor"))
		return
	}

	out := make([]publicTopicView, 0, len(topics))
	for i := range topics {
		v := publicTopicView{topicView: viewOfTopic(&topics[i])}
		if row, err := h.db.LatestSnapshotRow(topics[i].ID); err == nil {
			v.NodeCount = row.NodeCount
			v.EdgeCount = row.EdgeCount
			v.SourceCount = row.SourceCount
			v.Summary = row.Summary
		}
		out = append(out, v)
	}

	writeJSON(w, http.StatusOK, publicListResponse{
		Topics:     out,
		NextCursor: next,
		HasMore:    hasMore,
	})
}

// get returns one public topic.
func (h *publicHandler) get(w http.ResponseWriter, r *http.Request) {
	topic, ok := h.public(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, viewOfTopic(topic))
}

// latest returns the newest snapshot payload of a public topic.
func (h *publicHandler) latest(w http.ResponseWriter, r *http.Request) {
	topic, ok := h.public(w, r)
	if !ok {
		return
	}
	snap, err := h.snaps.Get(topic.ID, "latest")
	if errors.Is(err, apperr.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody("no snapshot yet"))
		return
	}
	if err != nil {
		h.logger.Error("public snapshot read failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("could not read snapshot"))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *publicHandler) public(w http.ResponseWriter, r *http.Request) (*models.Topic, bool) {
	id, err := topicIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid topic id"))
		return nil, false
	}
	topic, err := h.db.GetPublicTopic(id)
	if errors.Is(err, apperr.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody("topic not found"))
		return nil, false
	}
	if err != nil {
		h.logger.Error("public topic lookup failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("lookup failed"))
		return nil, false
	}
	return topic, true
}
