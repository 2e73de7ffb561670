package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/loaderd/internal/apperr"
	"github.com/starford/loaderd/internal/snapshot"
	"github.com/starford/loaderd/internal/store"
)

type snapshotHandler struct {
	db     *store.DB
	snaps  *snapshot.Store
	logger *slog.Logger
}

// list returns the versioned snapshot entries for an owned topic,
// newest first.
func (h *snapshotHandler) list(w http.ResponseWriter, r *http.Request) {
	topics := topicHandler{db: h.db, logger: h.logger}
	topic, ok := topics.owned(w, r)
	if !ok {
		return
	}

	entries, err := h.snaps.List(topic.ID)
	if err != nil {
		h.logger.Error("snapshot list failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("could not list snapshots"))
		return
	}

	out := make([]snapshotEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, snapshotEntry{Timestamp: e.Timestamp, Filename: e.Filename})
	}
	writeJSON(w, http.StatusOK, snapshotListResponse{TopicID: topic.ID, Snapshots: out})
}

// get returns one snapshot payload by timestamp key. The key "latest"
// resolves the newest snapshot.
func (h *snapshotHandler) get(w http.ResponseWriter, r *http.Request) {
	topics := topicHandler{db: h.db, logger: h.logger}
	topic, ok := topics.owned(w, r)
	if !ok {
		return
	}

	key := chi.URLParam(r, "timestamp")
	snap, err := h.snaps.Get(topic.ID, key)
	if errors.Is(err, apperr.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody("snapshot not found"))
		return
	}
	if err != nil {
		h.logger.Error("snapshot read failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("could not read snapshot"))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
