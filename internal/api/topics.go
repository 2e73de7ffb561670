package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/loaderd/internal/apperr"
	"github.com/starford/loaderd/internal/models"
	"github.com/starford/loaderd/internal/store"
	"github.com/starford/loaderd/internal/tracker"
)

type topicHandler struct {
	db     *store.DB
	runner *tracker.Runner
	logger *slog.Logger
}

func topicIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func encodeKeywords(kws []string) string {
	if kws == nil {
		kws = []string{}
	}
	data, _ := json.Marshal(kws)
	return string(data)
}

// create registers a new tracked topic for the authenticated user.
func (h *topicHandler) create(w http.ResponseWriter, r *http.Request) {
	var req topicCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	if req.IntervalHours == 0 {
		req.IntervalHours = 24
	}
	topic := &models.Topic{
		UserID:        userFrom(r).UserID,
		Name:          req.Name,
		Description:   req.Description,
		Keywords:      encodeKeywords(req.Keywords),
		IsPublic:      req.IsPublic,
		IntervalHours: req.IntervalHours,
	}
	if err := h.db.CreateTopic(topic); err != nil {
		h.logger.Error("topic create failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("could not create topic"))
		return
	}

	// Kick off the first run right away; a full queue just means the
	// scheduler picks the topic up on its next sweep.
	if err := h.runner.Enqueue(topic.ID); err != nil {
		h.logger.Warn("initial run not queued",
			slog.Int64("topic_id", topic.ID), slog.String("error", err.Error()))
	}

	writeJSON(w, http.StatusCreated, viewOfTopic(topic))
}

// list returns every topic owned by the authenticated user.
func (h *topicHandler) list(w http.ResponseWriter, r *http.Request) {
	topics, err := h.db.ListTopics(userFrom(r).UserID)
	if err != nil {
		h.logger.Error("topic list failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("could not list topics"))
		return
	}
	writeJSON(w, http.StatusOK, topicListResponse{
		Topics: viewOfTopics(topics),
		Total:  len(topics),
	})
}

// get returns one owned topic.
func (h *topicHandler) get(w http.ResponseWriter, r *http.Request) {
	topic, ok := h.owned(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, viewOfTopic(topic))
}

// update applies a partial update to an owned topic.
func (h *topicHandler) update(w http.ResponseWriter, r *http.Request) {
	topic, ok := h.owned(w, r)
	if !ok {
		return
	}

	var req topicUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	if req.Name != nil {
		topic.Name = *req.Name
	}
	if req.Description != nil {
		topic.Description = *req.Description
	}
	if req.Keywords != nil {
		topic.Keywords = encodeKeywords(*req.Keywords)
	}
	if req.Status != nil {
		topic.Status = models.TopicStatus(*req.Status)
	}
	if req.IsPublic != nil {
		topic.IsPublic = *req.IsPublic
	}
	if req.IntervalHours != nil {
		topic.IntervalHours = *req.IntervalHours
	}

	if err := h.db.UpdateTopic(topic); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("topic not found"))
			return
		}
		h.logger.Error("topic update failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("could not update topic"))
		return
	}
	writeJSON(w, http.StatusOK, viewOfTopic(topic))
}

// delete removes an owned topic and its snapshot index.
func (h *topicHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := topicIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid topic id"))
		return
	}
	err = h.db.DeleteTopic(id, userFrom(r).UserID)
	if errors.Is(err, apperr.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody("topic not found"))
		return
	}
	if err != nil {
		h.logger.Error("topic delete failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("could not delete topic"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// run enqueues an immediate pipeline run. The response is 202: callers
// poll the topic's run_status for the outcome. A topic already running
// or a full queue answers 409.
func (h *topicHandler) run(w http.ResponseWriter, r *http.Request) {
	topic, ok := h.owned(w, r)
	if !ok {
		return
	}
	err := h.runner.Enqueue(topic.ID)
	if errors.Is(err, apperr.ErrConflict) {
		writeJSON(w, http.StatusConflict, errorBody("a run is already in progress or queued"))
		return
	}
	if err != nil {
		h.logger.Error("run enqueue failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("could not queue run"))
		return
	}
	writeJSON(w, http.StatusAccepted, runAcceptedResponse{
		TopicID:   topic.ID,
		RunStatus: string(models.RunPending),
	})
}

func (h *topicHandler) owned(w http.ResponseWriter, r *http.Request) (*models.Topic, bool) {
	id, err := topicIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid topic id"))
		return nil, false
	}
	topic, err := h.db.GetTopic(id, userFrom(r).UserID)
	if errors.Is(err, apperr.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody("topic not found"))
		return nil, false
	}
	if err != nil {
		h.logger.Error("topic lookup failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("lookup failed"))
		return nil, false
	}
	return topic, true
}
