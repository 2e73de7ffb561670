// Package models defines the domain types for loaderd.
package models

import "time"

// TopicStatus is the user-controlled lifecycle state of a tracked topic.
type TopicStatus string

const (
	TopicActive   TopicStatus = "active"
	TopicPaused   TopicStatus = "paused"
	TopicArchived TopicStatus = "archived"
)

// RunStatus is the system-controlled execution state of a tracked topic.
type RunStatus string

const (
	RunPending RunStatus = "pending"
	RunRunning RunStatus = "running"
	RunReady   RunStatus = "ready"
	RunFailed  RunStatus = "failed"
)

// Topic is a user-defined subject being continuously tracked.
//
// Keywords holds the raw stored JSON array; malformed values are treated
// as an empty list by consumers rather than surfaced as errors.
type Topic struct {
	ID             int64       `json:"id"`
	UserID         string      `json:"user_id"`
	Name           string      `json:"name"`
	Description    string      `json:"description,omitempty"`
	Keywords       string      `json:"-"`
	Status         TopicStatus `json:"status"`
	RunStatus      RunStatus   `json:"run_status"`
	IsPublic       bool        `json:"is_public"`
	IntervalHours  int         `json:"search_interval_hours"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
	LastSearchedAt *time.Time  `json:"last_searched_at,omitempty"`
}

// SnapshotRow is the relational index record mirroring one stored snapshot.
// It carries counts and the md share code so listings never have to read
// graph payloads from disk.
type SnapshotRow struct {
	ID           int64     `json:"id"`
	TopicID      int64     `json:"topic_id"`
	SnapshotPath string    `json:"snapshot_path"`
	NodeCount    int       `json:"node_count"`
	EdgeCount    int       `json:"edge_count"`
	SourceCount  int       `json:"sources_count"`
	Summary      string    `json:"summary,omitempty"`
	MdCode       string    `json:"md_code,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// User is an API consumer. Registration is anonymous: a user is just a
// generated id plus the API key that maps back to it.
type User struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	APIKey    string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Backup is an uploaded file retrievable by share code until it expires.
type Backup struct {
	ID         int64     `json:"id"`
	Code       string    `json:"code"`
	FilePath   string    `json:"-"`
	FileSize   int64     `json:"file_size"`
	UploadedAt time.Time `json:"uploaded_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// MdFile is a stored markdown document, publicly readable by share code
// and never expiring.
type MdFile struct {
	ID            int64     `json:"id"`
	Code          string    `json:"code"`
	Content       string    `json:"content,omitempty"`
	ContentSize   int       `json:"content_size"`
	Filename      string    `json:"filename"`
	Purpose       string    `json:"purpose"`
	InstallPath   string    `json:"install_path"`
	DownloadCount int       `json:"download_count"`
	CreatedAt     time.Time `json:"created_at"`
}
