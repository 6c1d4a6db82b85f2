package shard

import (
	"sort"

	"github.com/agentvault/synccore/internal/model"
)

// Replay folds an ordered list of shards into the final fact set.
// Shards must already be sorted ascending by ShardVersion; Replay
// itself does not re-sort so that callers can deliberately feed
// duplicate-version shards in a defined order (spec's undefined
// tie-break is resolved here as "accept in input order").
//
// Per operation: upsert writes or overwrites, preserving Created and
// AccessCount from any existing entry (a shard's own timestamp
// otherwise); delete removes the entry outright. The result is
// returned in first-insertion order, matching "a delete followed by
// an upsert resurrects the key with a fresh Created" from a later
// shard.
func Replay(shards []model.Shard) []model.Fact {
	facts := make(map[string]model.Fact)
	var order []string

	for _, s := range shards {
		for _, op := range s.Operations {
			switch op.Op {
			case model.OpUpsert:
				created := s.Timestamp
				accessCount := 0
				if existing, ok := facts[op.Key]; ok {
					created = existing.Created
					accessCount = existing.AccessCount
				} else {
					order = append(order, op.Key)
				}
				facts[op.Key] = model.Fact{
					ID:            op.FactID,
					Scope:         op.Scope,
					Key:           op.Key,
					Value:         op.Value,
					Tags:          op.Tags,
					Confidence:    op.Confidence,
					SourceSession: s.SessionID,
					Created:       created,
					LastConfirmed: s.Timestamp,
					AccessCount:   accessCount,
				}
			case model.OpDelete:
				delete(facts, op.Key)
				order = removeFromOrder(order, op.Key)
			}
		}
	}

	out := make([]model.Fact, 0, len(order))
	for _, k := range order {
		out = append(out, facts[k])
	}
	return out
}

// ReplayOrdered sorts by ShardVersion ascending before replaying, for
// callers holding an unordered batch (e.g. ledger query results).
func ReplayOrdered(shards []model.Shard) []model.Fact {
	sorted := append([]model.Shard{}, shards...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ShardVersion < sorted[j].ShardVersion
	})
	return Replay(sorted)
}

func removeFromOrder(order []string, key string) []string {
	for i, k := range order {
		if k == key {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}
