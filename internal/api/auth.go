package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/loaderd/internal/apperr"
	"github.com/starford/loaderd/internal/codes"
	"github.com/starford/loaderd/internal/store"
)

type authHandler struct {
	db     *store.DB
	logger *slog.Logger
}

// register creates an anonymous user and returns the generated API key.
// The key is shown exactly once; only its mapping is stored.
func (h *authHandler) register(w http.ResponseWriter, r *http.Request) {
	for i := 0; i < 5; i++ {
		user, err := h.db.CreateUser(codes.UserID(), codes.APIKey())
		if errors.Is(err, apperr.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			h.logger.Error("register failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("registration failed"))
			return
		}
		writeJSON(w, http.StatusCreated, registerResponse{
			UserID: user.UserID,
			APIKey: user.APIKey,
		})
		return
	}
	writeJSON(w, http.StatusInternalServerError, errorBody("registration failed"))
}

// verify reports whether the presented API key maps to a user.
func (h *authHandler) verify(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	writeJSON(w, http.StatusOK, verifyResponse{UserID: user.UserID, Valid: true})
}
