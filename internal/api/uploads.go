package api

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/loaderd/internal/apperr"
	"github.com/starford/loaderd/internal/codes"
	"github.com/starford/loaderd/internal/store"
)

type uploadHandler struct {
	db       *store.DB
	dir      string
	maxBytes int64
	ttl      time.Duration
	logger   *slog.Logger
}

// upload stores the request body as an opaque file and returns a share
// code plus expiry. Bodies over the size cap are rejected with 413.
func (h *uploadHandler) upload(w http.ResponseWriter, r *http.Request) {
	f, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing file field"))
		return
	}
	defer f.Close()

	if header.Size > h.maxBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge,
			errorBody(fmt.Sprintf("file exceeds %d byte limit", h.maxBytes)))
		return
	}

	// Stored under a random name; the original filename never touches disk.
	buf := make([]byte, 16)
	rand.Read(buf)
	path := filepath.Join(h.dir, hex.EncodeToString(buf)+".bin")

	dst, err := os.Create(path)
	if err != nil {
		h.logger.Error("upload create failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("upload failed"))
		return
	}
	n, err := io.Copy(dst, io.LimitReader(f, h.maxBytes+1))
	dst.Close()
	if err != nil || n > h.maxBytes {
		os.Remove(path)
		if n > h.maxBytes {
			writeJSON(w, http.StatusRequestEntityTooLarge,
				errorBody(fmt.Sprintf("file exceeds %d byte limit", h.maxBytes)))
			return
		}
		h.logger.Error("upload write failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("upload failed"))
		return
	}

	b, err := h.db.NewBackup(path, n, h.ttl)
	if err != nil {
		os.Remove(path)
		h.logger.Error("upload record failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("upload failed"))
		return
	}

	writeJSON(w, http.StatusCreated, uploadResponse{
		Code:      b.Code,
		FileSize:  b.FileSize,
		ExpiresAt: b.ExpiresAt.Format(time.RFC3339),
	})
}

// download streams a stored file back by share code.
func (h *uploadHandler) download(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if !codes.ValidShareCode(code) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid code"))
		return
	}

	b, err := h.db.GetBackupByCode(code)
	switch {
	case errors.Is(err, apperr.ErrExpired):
		writeJSON(w, http.StatusGone, errorBody("backup expired"))
		return
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("backup not found"))
		return
	case err != nil:
		h.logger.Error("download lookup failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("download failed"))
		return
	}

	f, err := os.Open(b.FilePath)
	if err != nil {
		// Row exists but the file is gone (crash between unlink and delete).
		writeJSON(w, http.StatusNotFound, errorBody("backup not found"))
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", b.Code+".bin"))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", b.FileSize))
	io.Copy(w, f)
}
