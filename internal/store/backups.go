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

// CreateBackup records an uploaded file under a share code with a TTL.
func (db *DB) CreateBackup(code, filePath string, fileSize int64, ttl time.Duration) (*models.Backup, error) {
	now := time.Now().UTC()
	expires := now.Add(ttl)
	res, err := db.conn.Exec(
		`INSERT INTO backups (code, file_path, file_size, uploaded_at, expires_at) VALUES (?, ?, ?, ?, ?)`,
		code, filePath, fileSize, now, expires,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.ErrAlreadyExists
		}
		return nil, fmt.Errorf("store: create backup: %w", err)
	}
	id, _ := res.LastInsertId()
	return &models.Backup{
		ID: id, Code: code, FilePath: filePath, FileSize: fileSize,
		UploadedAt: now, ExpiresAt: expires,
	}, nil
}

// NewBackup records an upload under a freshly generated unique share
// code, regenerating the code on collision.
func (db *DB) NewBackup(filePath string, fileSize int64, ttl time.Duration) (*models.Backup, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		b, err := db.CreateBackup(codes.ShareCode(), filePath, fileSize, ttl)
		if errors.Is(err, apperr.ErrAlreadyExists) {
			continue
		}
		return b, err
	}
	return nil, fmt.Errorf("store: could not generate a unique backup code")
}

// GetBackupByCode returns the backup for code. Expired rows resolve to
// ErrExpired so the handler can distinguish "gone" from "never existed".
func (db *DB) GetBackupByCode(code string) (*models.Backup, error) {
	var b models.Backup
	err := db.conn.QueryRow(
		`SELECT id, code, file_path, file_size, uploaded_at, expires_at FROM backups WHERE code = ?`,
		code,
	).Scan(&b.ID, &b.Code, &b.FilePath, &b.FileSize, &b.UploadedAt, &b.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get backup: %w", err)
	}
	if time.Now().UTC().After(b.ExpiresAt) {
		return nil, apperr.ErrExpired
	}
	return &b, nil
}

// DeleteExpiredBackups removes rows whose TTL has elapsed and returns the
// file paths of the deleted rows so the caller can unlink them.
func (db *DB) DeleteExpiredBackups(now time.Time) ([]string, error) {
	rows, err := db.conn.Query(`SELECT id, file_path FROM backups WHERE expires_at < ?`, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("store: list expired backups: %w", err)
	}
	defer rows.Close()

	var ids []int64
	var paths []string
	for rows.Next() {
		var id int64
		var p string
		if err := rows.Scan(&id, &p); err != nil {
			return nil, err
		}
		ids = append(ids, id)
		paths = append(paths, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, id := range ids {
		if _, err := db.conn.Exec(`DELETE FROM backups WHERE id = ?`, id); err != nil {
			return paths, fmt.Errorf("store: delete expired backup: %w", err)
		}
	}
	return paths, nil
}
