package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/loaderd/internal/apperr"
	"github.com/starford/loaderd/internal/codes"
	"github.com/starford/loaderd/internal/models"
	"github.com/starford/loaderd/internal/store"
)

type mdHandler struct {
	db     *store.DB
	logger *slog.Logger
}

// create stores a markdown document and returns it with its share code.
func (h *mdHandler) create(w http.ResponseWriter, r *http.Request) {
	var req mdCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	m, err := h.db.NewMdFile(req.Content, req.Filename, req.Purpose, req.InstallPath)
	if err != nil {
		h.logger.Error("md create failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("could not store document"))
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// list returns document metadata, newest first, without content.
func (h *mdHandler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	files, total, err := h.db.ListMdFiles(limit, offset)
	if err != nil {
		h.logger.Error("md list failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("could not list documents"))
		return
	}
	writeJSON(w, http.StatusOK, mdListResponse{Files: files, Total: total})
}

// get returns a document with its content as JSON.
func (h *mdHandler) get(w http.ResponseWriter, r *http.Request) {
	m, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// raw streams a document's content as text/markdown and counts the
// download.
func (h *mdHandler) raw(w http.ResponseWriter, r *http.Request) {
	m, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := h.db.IncrementMdDownloads(m.Code); err != nil {
		h.logger.Warn("download count update failed",
			slog.String("code", m.Code), slog.String("error", err.Error()))
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+m.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(m.Content))
}

func (h *mdHandler) lookup(w http.ResponseWriter, r *http.Request) (*models.MdFile, bool) {
	code := chi.URLParam(r, "code")
	if !codes.ValidShareCode(code) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid code"))
		return nil, false
	}
	doc, err := h.db.GetMdFileByCode(code)
	if errors.Is(err, apperr.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody("document not found"))
		return nil, false
	}
	if err != nil {
		h.logger.Error("md lookup failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("lookup failed"))
		return nil, false
	}
	return doc, true
}
