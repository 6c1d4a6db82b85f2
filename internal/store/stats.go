package store

import (
	"context"
	"fmt"
	"os"
)

// Stats holds local-store diagnostics, used by a daemon's own health
// reporting rather than by anything the spec's sync engine consumes.
type Stats struct {
	DBPath         string       `json:"db_path"`
	DBSizeBytes    int64        `json:"db_size_bytes"`
	TotalFacts     int          `json:"total_facts"`
	DirtyFacts     int          `json:"dirty_facts"`
	PendingDeletes int          `json:"pending_deletes"`
	Scopes         []ScopeStats `json:"scopes"`
}

// ScopeStats holds per-scope counts.
type ScopeStats struct {
	Scope string `json:"scope"`
	Count int    `json:"count"`
}

// Stats returns local-store diagnostics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM facts`).Scan(&st.TotalFacts); err != nil {
		return st, fmt.Errorf("stats: count facts: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM facts WHERE dirty = 1`).Scan(&st.DirtyFacts); err != nil {
		return st, fmt.Errorf("stats: count dirty: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_deletes`).Scan(&st.PendingDeletes); err != nil {
		return st, fmt.Errorf("stats: count pending deletes: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT scope, COUNT(*) as cnt FROM facts GROUP BY scope ORDER BY cnt DESC`)
	if err != nil {
		return st, fmt.Errorf("stats: query scopes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sc ScopeStats
		if err := rows.Scan(&sc.Scope, &sc.Count); err != nil {
			return st, fmt.Errorf("stats: scan scope: %w", err)
		}
		st.Scopes = append(st.Scopes, sc)
	}
	if err := rows.Err(); err != nil {
		return st, fmt.Errorf("stats: iterate scopes: %w", err)
	}

	return st, nil
}
