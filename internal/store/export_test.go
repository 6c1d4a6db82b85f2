package store

import (
	"context"
	"testing"

	"github.com/agentvault/synccore/internal/model"
)

func TestExportAllReturnsEveryFact(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.UpsertFact(ctx, UpsertParams{Key: "a", Value: "1", Scope: "global"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := s.UpsertFact(ctx, UpsertParams{Key: "b", Value: "2", Scope: "project:demo"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	facts, err := s.ExportAll(ctx, "")
	if err != nil {
		t.Fatalf("export all: %v", err)
	}
	if len(facts) != 2 {
		t.Fatalf("expected 2 facts, got %d", len(facts))
	}
}

func TestExportAllFiltersByScope(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.UpsertFact(ctx, UpsertParams{Key: "a", Value: "1", Scope: "global"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := s.UpsertFact(ctx, UpsertParams{Key: "b", Value: "2", Scope: "project:demo"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	facts, err := s.ExportAll(ctx, "project:demo")
	if err != nil {
		t.Fatalf("export scoped: %v", err)
	}
	if len(facts) != 2 {
		t.Fatalf("expected scoped export to include the matching scope plus global, got %d", len(facts))
	}

	for _, f := range facts {
		if f.Key != "a" && f.Key != "b" {
			t.Errorf("unexpected fact in scoped export: %+v", f)
		}
	}
}

func TestImportReappliesFactsAsDirty(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	facts := []model.Fact{
		{Key: "a", Value: "1", Scope: "global"},
		{Key: "b", Value: "2", Scope: "global"},
	}

	n, err := s.Import(ctx, facts)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 imported, got %d", n)
	}

	dirty, err := s.GetDirty(ctx)
	if err != nil {
		t.Fatalf("get dirty: %v", err)
	}
	if len(dirty) != 2 {
		t.Fatalf("expected both imported facts to be dirty, got %d", len(dirty))
	}

	got, err := s.GetFact(ctx, "a")
	if err != nil {
		t.Fatalf("get fact: %v", err)
	}
	if got.Value != "1" {
		t.Errorf("expected value %q, got %q", "1", got.Value)
	}
}
