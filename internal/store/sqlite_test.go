package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	f, err := s.UpsertFact(ctx, UpsertParams{Key: "a", Value: "1", Scope: "global"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if f.ID == "" {
		t.Error("expected non-empty id")
	}
	if !f.Dirty {
		t.Error("expected dirty=true on insert")
	}
	if f.Created != f.LastConfirmed {
		t.Errorf("expected created == last_confirmed on insert, got %q vs %q", f.Created, f.LastConfirmed)
	}

	got, err := s.GetFact(ctx, "a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Value != "1" {
		t.Errorf("expected value '1', got %q", got.Value)
	}
}

func TestUpsertPreservesCreatedAcrossUpdate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first, _ := s.UpsertFact(ctx, UpsertParams{Key: "k", Value: "v1", Scope: "global"})
	second, err := s.UpsertFact(ctx, UpsertParams{Key: "k", Value: "v2", Scope: "global"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if second.Created != first.Created {
		t.Errorf("expected created to be preserved, got %q vs %q", second.Created, first.Created)
	}
	got, _ := s.GetFact(ctx, "k")
	if got.Value != "v2" {
		t.Errorf("expected latest value 'v2', got %q", got.Value)
	}
}

func TestDeleteThenResurrectRemovesTombstone(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.UpsertFact(ctx, UpsertParams{Key: "k", Value: "v1", Scope: "global"})
	if err := s.DeleteFact(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := s.GetFact(ctx, "k"); err == nil {
		t.Error("expected fact absent after delete")
	}
	tombstones, _ := s.GetPendingDeletes(ctx)
	if len(tombstones) != 1 || tombstones[0].Key != "k" {
		t.Fatalf("expected one tombstone for 'k', got %+v", tombstones)
	}

	s.UpsertFact(ctx, UpsertParams{Key: "k", Value: "v2", Scope: "global"})
	tombstones, _ = s.GetPendingDeletes(ctx)
	if len(tombstones) != 0 {
		t.Errorf("expected tombstone removed after re-create, got %+v", tombstones)
	}
}

func TestDeleteNonexistentKeyLeavesNoTombstone(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.DeleteFact(ctx, "missing"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	tombstones, _ := s.GetPendingDeletes(ctx)
	if len(tombstones) != 0 {
		t.Errorf("expected no tombstone, got %+v", tombstones)
	}
}

func TestListByScopeIncludesGlobal(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.UpsertFact(ctx, UpsertParams{Key: "a", Value: "x", Scope: "global"})
	s.UpsertFact(ctx, UpsertParams{Key: "b", Value: "y", Scope: "project:foo"})
	s.UpsertFact(ctx, UpsertParams{Key: "c", Value: "z", Scope: "project:bar"})

	got, err := s.ListByScope(ctx, "project:foo")
	if err != nil {
		t.Fatalf("list by scope: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 (global + project:foo), got %d", len(got))
	}
}

func TestClearDirty(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.UpsertFact(ctx, UpsertParams{Key: "a", Value: "1", Scope: "global"})
	s.DeleteFact(ctx, "a")
	s.UpsertFact(ctx, UpsertParams{Key: "b", Value: "2", Scope: "global"})

	if err := s.ClearDirty(ctx); err != nil {
		t.Fatalf("clear dirty: %v", err)
	}

	dirty, _ := s.GetDirty(ctx)
	if len(dirty) != 0 {
		t.Errorf("expected no dirty facts after ClearDirty, got %d", len(dirty))
	}
	pending, _ := s.GetPendingDeletes(ctx)
	if len(pending) != 0 {
		t.Errorf("expected no pending deletes after ClearDirty, got %d", len(pending))
	}
}

func TestMeta(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, ok, err := s.GetMeta(ctx, "current_version"); err != nil || ok {
		t.Fatalf("expected missing meta key, got ok=%v err=%v", ok, err)
	}
	if err := s.SetMeta(ctx, "current_version", "3"); err != nil {
		t.Fatalf("set meta: %v", err)
	}
	v, ok, err := s.GetMeta(ctx, "current_version")
	if err != nil || !ok || v != "3" {
		t.Fatalf("expected '3', got %q ok=%v err=%v", v, ok, err)
	}
	if err := s.SetMeta(ctx, "current_version", "4"); err != nil {
		t.Fatalf("update meta: %v", err)
	}
	v, _, _ = s.GetMeta(ctx, "current_version")
	if v != "4" {
		t.Errorf("expected '4' after overwrite, got %q", v)
	}
}

func TestIncrementAccessCount(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.UpsertFact(ctx, UpsertParams{Key: "a", Value: "1", Scope: "global"})
	s.IncrementAccessCount(ctx, "a")
	s.IncrementAccessCount(ctx, "a")

	got, _ := s.GetFact(ctx, "a")
	if got.AccessCount != 2 {
		t.Errorf("expected access_count 2, got %d", got.AccessCount)
	}
}

func TestDBPathCreation(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sub", "dir", "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("expected db file to be created")
	}
}

func TestReplaceAllIsClean(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.UpsertFact(ctx, UpsertParams{Key: "stale", Value: "old", Scope: "global"})

	if err := s.ReplaceAll(ctx, nil); err != nil {
		t.Fatalf("replace all: %v", err)
	}
	all, _ := s.ListAll(ctx)
	if len(all) != 0 {
		t.Errorf("expected empty store after ReplaceAll(nil), got %d", len(all))
	}
}
