package store

import (
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/starford/loaderd/internal/apperr"
	"github.com/starford/loaderd/internal/models"
)

const topicColumns = `id, user_id, name, description, keywords, status, run_status,
	is_public, search_interval_hours, created_at, updated_at, last_searched_at`

func scanTopic(row interface{ Scan(...any) error }) (*models.Topic, error) {
	var t models.Topic
	var lastSearched sql.NullTime
	err := row.Scan(&t.ID, &t.UserID, &t.Name, &t.Description, &t.Keywords,
		&t.Status, &t.RunStatus, &t.IsPublic, &t.IntervalHours,
		&t.CreatedAt, &t.UpdatedAt, &lastSearched)
	if err != nil {
		return nil, err
	}
	if lastSearched.Valid {
		ts := lastSearched.Time
		t.LastSearchedAt = &ts
	}
	return &t, nil
}

// CreateTopic inserts a new tracked topic and fills in its id/timestamps.
func (db *DB) CreateTopic(t *models.Topic) error {
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.Status == "" {
		t.Status = models.TopicActive
	}
	if t.RunStatus == "" {
		t.RunStatus = models.RunPending
	}
	if t.Keywords == "" {
		t.Keywords = "[]"
	}
	res, err := db.conn.Exec(
		`INSERT INTO topics (user_id, name, description, keywords, status, run_status,
			is_public, search_interval_hours, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.Name, t.Description, t.Keywords, t.Status, t.RunStatus,
		t.IsPublic, t.IntervalHours, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("store: create topic: %w", err)
	}
	t.ID, _ = res.LastInsertId()
	return nil
}

// GetTopic returns a topic by id, scoped to its owner.
func (db *DB) GetTopic(id int64, userID string) (*models.Topic, error) {
	t, err := scanTopic(db.conn.QueryRow(
		`SELECT `+topicColumns+` FROM topics WHERE id = ? AND user_id = ?`, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get topic: %w", err)
	}
	return t, nil
}

// GetTopicByID returns a topic regardless of owner. Used by the
// orchestrator and scheduler, which operate on behalf of the system.
func (db *DB) GetTopicByID(id int64) (*models.Topic, error) {
	t, err := scanTopic(db.conn.QueryRow(
		`SELECT `+topicColumns+` FROM topics WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get topic by id: %w", err)
	}
	return t, nil
}

// GetPublicTopic returns a topic by id when it is flagged public.
func (db *DB) GetPublicTopic(id int64) (*models.Topic, error) {
	t, err := scanTopic(db.conn.QueryRow(
		`SELECT `+topicColumns+` FROM topics WHERE id = ? AND is_public = 1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get public topic: %w", err)
	}
	return t, nil
}

// ListTopics returns every topic owned by userID, newest-updated first.
func (db *DB) ListTopics(userID string) ([]models.Topic, error) {
	rows, err := db.conn.Query(
		`SELECT `+topicColumns+` FROM topics WHERE user_id = ? ORDER BY updated_at DESC, id DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("store: list topics: %w", err)
	}
	defer rows.Close()
	return collectTopics(rows)
}

// UpdateTopic writes the mutable fields of t and stamps updated_at.
func (db *DB) UpdateTopic(t *models.Topic) error {
	t.UpdatedAt = time.Now().UTC()
	res, err := db.conn.Exec(
		`UPDATE topics SET name = ?, description = ?, keywords = ?, status = ?,
			is_public = ?, search_interval_hours = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		t.Name, t.Description, t.Keywords, t.Status, t.IsPublic, t.IntervalHours,
		t.UpdatedAt, t.ID, t.UserID,
	)
	if err != nil {
		return fmt.Errorf("store: update topic: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// DeleteTopic removes a topic and its snapshot index rows. Snapshot files
// on disk are left behind; the read path tolerates orphans.
func (db *DB) DeleteTopic(id int64, userID string) error {
	res, err := db.conn.Exec(`DELETE FROM topics WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("store: delete topic: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	if _, err := db.conn.Exec(`DELETE FROM topic_snapshots WHERE topic_id = ?`, id); err != nil {
		return fmt.Errorf("store: delete topic snapshots: %w", err)
	}
	return nil
}

// SetRunStatus transitions a topic's execution state and stamps updated_at.
func (db *DB) SetRunStatus(id int64, status models.RunStatus) error {
	_, err := db.conn.Exec(
		`UPDATE topics SET run_status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("store: set run status: %w", err)
	}
	return nil
}

// MarkTopicReady records a successful run: run_status ready, last_searched_at
// and updated_at stamped with now.
func (db *DB) MarkTopicReady(id int64, now time.Time) error {
	_, err := db.conn.Exec(
		`UPDATE topics SET run_status = ?, last_searched_at = ?, updated_at = ? WHERE id = ?`,
		models.RunReady, now.UTC(), now.UTC(), id)
	if err != nil {
		return fmt.Errorf("store: mark ready: %w", err)
	}
	return nil
}

// MarkTopicFailed records a failed run. last_searched_at is left alone so
// the topic stays due on its original schedule.
func (db *DB) MarkTopicFailed(id int64, now time.Time) error {
	_, err := db.conn.Exec(
		`UPDATE topics SET run_status = ?, updated_at = ? WHERE id = ?`,
		models.RunFailed, now.UTC(), id)
	if err != nil {
		return fmt.Errorf("store: mark failed: %w", err)
	}
	return nil
}

// ListRunCandidates returns active topics that are not currently running.
// The scheduler applies the interval check on top of this set.
func (db *DB) ListRunCandidates() ([]models.Topic, error) {
	rows, err := db.conn.Query(
		`SELECT `+topicColumns+` FROM topics WHERE status = ? AND run_status != ? ORDER BY id`,
		models.TopicActive, models.RunRunning)
	if err != nil {
		return nil, fmt.Errorf("store: list run candidates: %w", err)
	}
	defer rows.Close()
	return collectTopics(rows)
}

// EncodeCursor packs a pagination position into an opaque cursor.
func EncodeCursor(id int64, updatedAt time.Time) string {
	data := strconv.FormatInt(id, 10) + ":" + updatedAt.UTC().Format(time.RFC3339Nano)
	return base64.URLEncoding.EncodeToString([]byte(data))
}

// DecodeCursor unpacks a cursor produced by EncodeCursor.
func DecodeCursor(cursor string) (int64, time.Time, error) {
	raw, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("store: invalid cursor: %w", err)
	}
	parts := strings.SplitN(string(raw), ":", 2)
	if len(parts) != 2 {
		return 0, time.Time{}, fmt.Errorf("store: invalid cursor format")
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("store: invalid cursor id: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, parts[1])
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("store: invalid cursor timestamp: %w", err)
	}
	return id, ts, nil
}

// ListPublicTopics returns public+active topics ordered by
// (updated_at desc, id desc) with cursor pagination and an optional
// keyword filter matching name or stored keywords. One extra row is
// fetched internally to compute hasMore.
func (db *DB) ListPublicTopics(limit int, cursor, keyword string) ([]models.Topic, string, bool, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `SELECT ` + topicColumns + ` FROM topics WHERE is_public = 1 AND status = ?`
	args := []any{models.TopicActive}

	if keyword != "" {
		query += ` AND (name LIKE ? OR keywords LIKE ?)`
		pat := "%" + keyword + "%"
		args = append(args, pat, pat)
	}
	if cursor != "" {
		cID, cUpdated, err := DecodeCursor(cursor)
		if err != nil {
			return nil, "", false, err
		}
		query += ` AND (updated_at < ? OR (updated_at = ? AND id < ?))`
		args = append(args, cUpdated.UTC(), cUpdated.UTC(), cID)
	}

	query += ` ORDER BY updated_at DESC, id DESC LIMIT ?`
	args = append(args, limit+1)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, "", false, fmt.Errorf("store: list public topics: %w", err)
	}
	defer rows.Close()

	topics, err := collectTopics(rows)
	if err != nil {
		return nil, "", false, err
	}

	hasMore := len(topics) > limit
	if hasMore {
		topics = topics[:limit]
	}

	next := ""
	if hasMore && len(topics) > 0 {
		last := topics[len(topics)-1]
		next = EncodeCursor(last.ID, last.UpdatedAt)
	}
	return topics, next, hasMore, nil
}

func collectTopics(rows *sql.Rows) ([]models.Topic, error) {
	out := []models.Topic{}
	for rows.Next() {
		t, err := scanTopic(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}
