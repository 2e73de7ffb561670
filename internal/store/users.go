package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/loaderd/internal/apperr"
	"github.com/starford/loaderd/internal/models"
)

// CreateUser inserts a new user row. The caller supplies pre-generated
// user_id and api_key; a uniqueness collision surfaces as ErrAlreadyExists
// so the caller can regenerate and retry.
func (db *DB) CreateUser(userID, apiKey string) (*models.User, error) {
	now := time.Now().UTC()
	res, err := db.conn.Exec(
		`INSERT INTO users (user_id, api_key, created_at) VALUES (?, ?, ?)`,
		userID, apiKey, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.ErrAlreadyExists
		}
		return nil, fmt.Errorf("store: create user: %w", err)
	}
	id, _ := res.LastInsertId()
	return &models.User{ID: id, UserID: userID, APIKey: apiKey, CreatedAt: now}, nil
}

// GetUserByAPIKey resolves an API key to its owner.
func (db *DB) GetUserByAPIKey(apiKey string) (*models.User, error) {
	var u models.User
	err := db.conn.QueryRow(
		`SELECT id, user_id, api_key, created_at FROM users WHERE api_key = ?`,
		apiKey,
	).Scan(&u.ID, &u.UserID, &u.APIKey, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get user by api key: %w", err)
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	// Matching the message avoids leaking the driver's error type into
	// every repository file.
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
