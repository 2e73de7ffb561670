// Package testutil provides shared test helpers for setting up databases
// and snapshot stores.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/loaderd/internal/snapshot"
	"github.com/starford/loaderd/internal/store"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "loaderd-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestSnapshots creates a snapshot store rooted in a temporary directory.
func TestSnapshots(t *testing.T) *snapshot.Store {
	t.Helper()
	snaps, err := snapshot.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return snaps
}
