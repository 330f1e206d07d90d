package archive_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"fidctail/internal/archive"
	"fidctail/internal/testsupport"
)

func TestOpenAppliesMigrationsAndReopens(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithArchive())
	store := testsupport.MustOpenArchive(t, cfg)

	ctx := context.Background()
	testsupport.AppendEntries(t, store, archive.Entry{
		SessionID: "s1",
		Source:    "am-core",
		Cursor:    "C1",
		Page:      2,
		Payload:   json.RawMessage(`{"msg":"a"}`),
	})
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := archive.Open(cfg.Archive.Path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	count, err := reopened.Count(ctx, "")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected entry to survive reopen, got %d", count)
	}
	if reopened.Path() != cfg.Archive.Path {
		t.Fatalf("unexpected path %q", reopened.Path())
	}
}

func TestRecentFiltersBySourceAndOrdersOldestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenArchive(t, cfg)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	testsupport.AppendEntries(t, store,
		archive.Entry{SessionID: "s1", Source: "am-core", Payload: json.RawMessage(`1`), ReceivedAt: base},
		archive.Entry{SessionID: "s1", Source: "idm-core", Payload: json.RawMessage(`2`), ReceivedAt: base.Add(time.Second)},
		archive.Entry{SessionID: "s1", Source: "am-core", Cursor: "C1", Payload: json.RawMessage(`3`), ReceivedAt: base.Add(2 * time.Second)},
		archive.Entry{SessionID: "s1", Source: "am-core", Cursor: "C2", Payload: json.RawMessage(`"four"`), ReceivedAt: base.Add(3 * time.Second)},
	)

	entries, err := store.Recent(ctx, "am-core", 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if string(entries[0].Payload) != `3` || string(entries[1].Payload) != `"four"` {
		t.Fatalf("unexpected order: %s, %s", entries[0].Payload, entries[1].Payload)
	}
	if entries[0].Cursor != "C1" || !entries[1].ReceivedAt.Equal(base.Add(3*time.Second)) {
		t.Fatalf("unexpected entry fields: %+v", entries)
	}

	all, err := store.Recent(ctx, "", 0)
	if err != nil {
		t.Fatalf("Recent(all): %v", err)
	}
	if len(all) != 4 || all[0].Cursor != "" {
		t.Fatalf("unexpected entries: %+v", all)
	}

	count, err := store.Count(ctx, "idm-core")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 idm-core entry, got %d", count)
	}
}

func TestAppendRejectsInvalidPayloadAtomically(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenArchive(t, cfg)
	ctx := context.Background()

	err := store.Append(ctx,
		archive.Entry{SessionID: "s1", Source: "am-core", Payload: json.RawMessage(`{"ok":true}`)},
		archive.Entry{SessionID: "s1", Source: "am-core", Payload: json.RawMessage(`{"broken"`)},
	)
	if err == nil {
		t.Fatal("expected error for invalid payload")
	}
	count, err := store.Count(ctx, "")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected rollback, found %d entries", count)
	}
}

func TestPruneRemovesOlderEntries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenArchive(t, cfg)
	ctx := context.Background()

	cutoff := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	testsupport.AppendEntries(t, store,
		archive.Entry{SessionID: "s1", Source: "am-core", Payload: json.RawMessage(`1`), ReceivedAt: cutoff.Add(-time.Hour)},
		archive.Entry{SessionID: "s1", Source: "am-core", Payload: json.RawMessage(`2`), ReceivedAt: cutoff.Add(-500 * time.Millisecond)},
		archive.Entry{SessionID: "s1", Source: "am-core", Payload: json.RawMessage(`3`), ReceivedAt: cutoff.Add(time.Millisecond)},
	)

	removed, err := store.Prune(ctx, cutoff)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	remaining, err := store.Recent(ctx, "", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(remaining) != 1 || string(remaining[0].Payload) != `3` {
		t.Fatalf("unexpected remaining entries: %+v", remaining)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := archive.Open(" "); err == nil {
		t.Fatal("expected error for empty path")
	}
	store, err := archive.Open(filepath.Join(t.TempDir(), "nested", "dir", "archive.db"))
	if err != nil {
		t.Fatalf("expected nested directories to be created: %v", err)
	}
	_ = store.Close()
}
