package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/loaderd/internal/apperr"
	"github.com/starford/loaderd/internal/models"
)

// summaryTruncateLen bounds the summary copy kept in the index row; the
// full text lives in the snapshot payload on disk.
const summaryTruncateLen = 2000

// InsertSnapshotRow records the bookkeeping row for a freshly saved
// snapshot, truncating the summary copy.
func (db *DB) InsertSnapshotRow(r *models.SnapshotRow) error {
	r.CreatedAt = time.Now().UTC()
	if len(r.Summary) > summaryTruncateLen {
		r.Summary = r.Summary[:summaryTruncateLen]
	}
	res, err := db.conn.Exec(
		`INSERT INTO topic_snapshots (topic_id, snapshot_path, node_count, edge_count,
			sources_count, summary, md_code, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.TopicID, r.SnapshotPath, r.NodeCount, r.EdgeCount,
		r.SourceCount, r.Summary, r.MdCode, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("store: insert snapshot row: %w", err)
	}
	r.ID, _ = res.LastInsertId()
	return nil
}

// LatestSnapshotRow returns the newest index row for a topic.
func (db *DB) LatestSnapshotRow(topicID int64) (*models.SnapshotRow, error) {
	var r models.SnapshotRow
	err := db.conn.QueryRow(
		`SELECT id, topic_id, snapshot_path, node_count, edge_count, sources_count, summary, md_code, created_at
		 FROM topic_snapshots WHERE topic_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		topicID,
	).Scan(&r.ID, &r.TopicID, &r.SnapshotPath, &r.NodeCount, &r.EdgeCount,
		&r.SourceCount, &r.Summary, &r.MdCode, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: latest snapshot row: %w", err)
	}
	return &r, nil
}

// ListSnapshotRows returns index rows for a topic, newest first.
func (db *DB) ListSnapshotRows(topicID int64, limit int) ([]models.SnapshotRow, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := db.conn.Query(
		`SELECT id, topic_id, snapshot_path, node_count, edge_count, sources_count, summary, md_code, created_at
		 FROM topic_snapshots WHERE topic_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		topicID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list snapshot rows: %w", err)
	}
	defer rows.Close()

	out := []models.SnapshotRow{}
	for rows.Next() {
		var r models.SnapshotRow
		if err := rows.Scan(&r.ID, &r.TopicID, &r.SnapshotPath, &r.NodeCount, &r.EdgeCount,
			&r.SourceCount, &r.Summary, &r.MdCode, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
