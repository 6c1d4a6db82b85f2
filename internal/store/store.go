// Package store provides the local embedded store: facts,
// pending deletions, and the sync cursors in meta.
package store

import (
	"context"

	"github.com/agentvault/synccore/internal/model"
)

// UpsertParams holds parameters for upsert_fact.
type UpsertParams struct {
	Key           string
	Value         string
	Scope         string
	Tags          []string
	Confidence    float64
	SourceSession string
}

// Store defines the local store's interface. upsert_fact / delete_fact
// / get_fact / list_all / list_by_scope / get_dirty /
// get_pending_deletes / clear_dirty / increment_access_count /
// get_meta / set_meta, per spec.md §4.5.
type Store interface {
	UpsertFact(ctx context.Context, p UpsertParams) (*model.Fact, error)
	DeleteFact(ctx context.Context, key string) error
	GetFact(ctx context.Context, key string) (*model.Fact, error)
	ListAll(ctx context.Context) ([]model.Fact, error)
	ListByScope(ctx context.Context, scope string) ([]model.Fact, error)
	GetDirty(ctx context.Context) ([]model.Fact, error)
	GetPendingDeletes(ctx context.Context) ([]model.PendingDelete, error)
	ClearDirty(ctx context.Context) error
	IncrementAccessCount(ctx context.Context, key string) error
	GetMeta(ctx context.Context, key string) (string, bool, error)
	SetMeta(ctx context.Context, key, value string) error

	// ReplaceAll atomically replaces every fact row with facts, used by
	// pull_and_reconstruct to write a freshly replayed state. It does
	// not mark rows dirty, and it empties pending_deletes.
	ReplaceAll(ctx context.Context, facts []model.Fact) error

	Close() error
}
