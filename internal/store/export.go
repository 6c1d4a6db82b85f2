package store

import (
	"context"

	"github.com/agentvault/synccore/internal/model"
)

// ExportAll returns every fact, or, when scope is set, the facts in
// that scope plus the global ones (ListByScope) — a local
// backup/inspection helper independent of the ledger round-trip.
func (s *SQLiteStore) ExportAll(ctx context.Context, scope string) ([]model.Fact, error) {
	if scope == "" {
		return s.ListAll(ctx)
	}
	return s.ListByScope(ctx, scope)
}

// Import re-applies a previously exported fact set through UpsertFact,
// so each imported fact is marked dirty and will be re-pushed.
func (s *SQLiteStore) Import(ctx context.Context, facts []model.Fact) (int, error) {
	imported := 0
	for _, f := range facts {
		_, err := s.UpsertFact(ctx, UpsertParams{
			Key: f.Key, Value: f.Value, Scope: f.Scope, Tags: f.Tags,
			Confidence: f.Confidence, SourceSession: f.SourceSession,
		})
		if err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}
