// Package snapshot provides durable, per-topic, append-only storage of
// knowledge-graph snapshots with O(1) access to the newest entry.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/starford/loaderd/internal/apperr"
	"github.com/starford/loaderd/internal/models"
)

const (
	// keyFormat names versioned snapshot files. Second precision: a
	// second save within the same second overwrites the first entry
	// (last write wins within a tick).
	keyFormat  = "2006-01-02T15-04-05Z"
	latestName = "latest.json"
)

// Entry is a lightweight descriptor of one versioned snapshot file.
type Entry struct {
	Timestamp string `json:"timestamp"`
	Filename  string `json:"filename"`
}

// Store persists snapshots under root/<topicID>/.
type Store struct {
	root string
}

// NewStore creates a snapshot store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("snapshot: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("snapshot: create root: %w", err)
	}
	return &Store{root: abs}, nil
}

func (s *Store) topicDir(topicID int64) string {
	return filepath.Join(s.root, strconv.FormatInt(topicID, 10))
}

// Save writes snap as a new versioned entry and mirrors it into latest.json.
// It assigns the snapshot's topic id, UTC timestamp, and version (count of
// prior versioned entries + 1), and returns a locator relative to the
// store root. The versioned entry is immutable once Save returns; the
// latest.json mirror is overwritten on every call.
func (s *Store) Save(topicID int64, snap *models.Snapshot) (string, error) {
	dir := s.topicDir(topicID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("snapshot: create topic dir: %w", err)
	}

	entries, err := s.List(topicID)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	snap.TopicID = topicID
	snap.Timestamp = now.Format(time.RFC3339)
	snap.Version = len(entries) + 1

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("snapshot: encode: %w", err)
	}

	filename := now.Format(keyFormat) + ".json"
	if err := writeAtomic(filepath.Join(dir, filename), data); err != nil {
		return "", err
	}
	if err := writeAtomic(filepath.Join(dir, latestName), data); err != nil {
		return "", err
	}

	return filepath.Join(strconv.FormatInt(topicID, 10), filename), nil
}

// Get returns the snapshot stored under key. Key "latest" resolves the
// mirror; any other key is a timestamp identifier (with or without the
// .json suffix). A missing topic directory or entry yields ErrNotFound.
func (s *Store) Get(topicID int64, key string) (*models.Snapshot, error) {
	name := latestName
	if key != "" && key != "latest" {
		name = strings.TrimSuffix(key, ".json") + ".json"
	}
	data, err := os.ReadFile(filepath.Join(s.topicDir(topicID), name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("snapshot: read %s: %w", name, err)
	}
	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("snapshot: decode %s: %w", name, err)
	}
	return &snap, nil
}

// List returns descriptors for every versioned entry, newest first. The
// latest.json mirror is excluded. A topic with no directory lists empty.
func (s *Store) List(topicID int64) ([]Entry, error) {
	dirents, err := os.ReadDir(s.topicDir(topicID))
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("snapshot: list: %w", err)
	}

	entries := []Entry{}
	for _, d := range dirents {
		name := d.Name()
		if d.IsDir() || name == latestName || !strings.HasSuffix(name, ".json") {
			continue
		}
		entries = append(entries, Entry{
			Timestamp: strings.TrimSuffix(name, ".json"),
			Filename:  name,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp > entries[j].Timestamp
	})
	return entries, nil
}

// GetPrevious returns the most recent versioned snapshot, or ErrNotFound
// when the topic has never been snapshotted. It reads the versioned entry
// rather than the mirror so a half-written mirror can never mask history.
func (s *Store) GetPrevious(topicID int64) (*models.Snapshot, error) {
	entries, err := s.List(topicID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, apperr.ErrNotFound
	}
	return s.Get(topicID, entries[0].Timestamp)
}

// writeAtomic writes content via tmp file, fsync, rename.
func writeAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".loaderd-tmp-*")
	if err != nil {
		return fmt.Errorf("snapshot: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("snapshot: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("snapshot: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("snapshot: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("snapshot: rename: %w", err)
	}
	success = true
	return nil
}
