package storage_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/crawlcore/crawlcore/internal/storage"
	"github.com/crawlcore/crawlcore/pkg/retry"
	"github.com/crawlcore/crawlcore/pkg/timeutil"
	"github.com/stretchr/testify/require"
)

// newTestStore opens and initializes a fresh SQLiteStore backed by a temp
// file (SQLite's :memory: DSN doesn't survive the WAL-mode query string
// used by NewSQLiteStore, so every test gets its own on-disk file instead).
func newTestStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "crawl.db")
	retryParam := retry.NewRetryParam(
		time.Millisecond,
		time.Millisecond,
		1,
		3,
		timeutil.NewBackoffParam(time.Millisecond, 2.0, 50*time.Millisecond),
	)

	store, err := storage.NewSQLiteStore(dbPath, retryParam)
	require.NoError(t, err)
	require.NoError(t, store.Initialize())

	t.Cleanup(func() {
		store.Close()
		os.Remove(dbPath)
	})

	return store
}

func newTestSession(t *testing.T, store *storage.SQLiteStore, id string) storage.SessionRecord {
	t.Helper()

	session := storage.NewSessionRecord(id, "test-session", `{"maxDepth":3}`)
	require.NoError(t, store.CreateSession(session))
	return session
}
