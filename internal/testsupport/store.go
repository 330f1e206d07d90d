package testsupport

import (
	"context"
	"testing"

	"fidctail/internal/archive"
	"fidctail/internal/config"
)

// MustOpenArchive opens the archive configured by cfg and registers cleanup.
func MustOpenArchive(t testing.TB, cfg *config.Config) *archive.Store {
	t.Helper()

	store, err := archive.Open(cfg.Archive.Path)
	if err != nil {
		t.Fatalf("archive.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// AppendEntries stores entries for tests.
func AppendEntries(t testing.TB, store *archive.Store, entries ...archive.Entry) {
	t.Helper()

	if err := store.Append(context.Background(), entries...); err != nil {
		t.Fatalf("store.Append: %v", err)
	}
}
