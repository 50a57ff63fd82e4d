// Package testutil provides shared test helpers for databases and blob stores.
package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/starford/journalsync/internal/storage"
	"github.com/starford/journalsync/internal/store"
)

// MediaBase is the public base URL used by TestBlobs.
const MediaBase = "http://media.test/media-attachments"

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "journalsync-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(context.Background(), store.DriverSQLite, dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestBlobs creates a temporary media directory served under MediaBase.
func TestBlobs(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	blobs, err := storage.NewFS(dir, MediaBase, 0)
	if err != nil {
		t.Fatal(err)
	}
	return dir, blobs
}
