package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/loaderd/internal/apperr"
	"github.com/starford/loaderd/internal/codes"
	"github.com/starford/loaderd/internal/models"
)

// CreateMdFile stores a markdown document under a share code. Documents
// are permanent and publicly readable. Collision on code surfaces as
// ErrAlreadyExists so the caller can generate a fresh code and retry.
func (db *DB) CreateMdFile(code, content, filename, purpose, installPath string) (*models.MdFile, error) {
	now := time.Now().UTC()
	size := len([]byte(content))
	res, err := db.conn.Exec(
		`INSERT INTO md_files (code, content, content_size, filename, purpose, install_path, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		code, content, size, filename, purpose, installPath, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.ErrAlreadyExists
		}
		return nil, fmt.Errorf("store: create md file: %w", err)
	}
	id, _ := res.LastInsertId()
	return &models.MdFile{
		ID: id, Code: code, Content: content, ContentSize: size,
		Filename: filename, Purpose: purpose, InstallPath: installPath,
		CreatedAt: now,
	}, nil
}

// GetMdFileByCode returns a stored markdown document with its content.
func (db *DB) GetMdFileByCode(code string) (*models.MdFile, error) {
	var m models.MdFile
	err := db.conn.QueryRow(
		`SELECT id, code, content, content_size, filename, purpose, install_path, download_count, created_at
		 FROM md_files WHERE code = ?`,
		code,
	).Scan(&m.ID, &m.Code, &m.Content, &m.ContentSize, &m.Filename, &m.Purpose,
		&m.InstallPath, &m.DownloadCount, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get md file: %w", err)
	}
	return &m, nil
}

// ListMdFiles returns metadata (no content) newest first, plus the total.
func (db *DB) ListMdFiles(limit, offset int) ([]models.MdFile, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM md_files`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count md files: %w", err)
	}

	rows, err := db.conn.Query(
		`SELECT id, code, content_size, filename, purpose, install_path, download_count, created_at
		 FROM md_files ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("store: list md files: %w", err)
	}
	defer rows.Close()

	out := []models.MdFile{}
	for rows.Next() {
		var m models.MdFile
		if err := rows.Scan(&m.ID, &m.Code, &m.ContentSize, &m.Filename, &m.Purpose,
			&m.InstallPath, &m.DownloadCount, &m.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}

// maxCodeAttempts bounds share-code regeneration on collisions.
const maxCodeAttempts = 100

// NewMdFile stores content under a freshly generated unique share code,
// regenerating the code on the (unlikely) collision.
func (db *DB) NewMdFile(content, filename, purpose, installPath string) (*models.MdFile, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		m, err := db.CreateMdFile(codes.ShareCode(), content, filename, purpose, installPath)
		if errors.Is(err, apperr.ErrAlreadyExists) {
			continue
		}
		return m, err
	}
	return nil, fmt.Errorf("store: could not generate a unique md code")
}

// IncrementMdDownloads bumps the download counter for a document.
func (db *DB) IncrementMdDownloads(code string) error {
	_, err := db.conn.Exec(`UPDATE md_files SET download_count = download_count + 1 WHERE code = ?`, code)
	if err != nil {
		return fmt.Errorf("store: increment downloads: %w", err)
	}
	return nil
}
