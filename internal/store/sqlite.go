package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/agentvault/synccore/internal/model"
)

// SQLiteStore implements Store using an embedded single-file database.
type SQLiteStore struct {
	db      *sql.DB
	entropy *rand.Rand
}

// NewSQLiteStore opens or creates the local store at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS facts (
		id              TEXT PRIMARY KEY,
		scope           TEXT NOT NULL,
		key             TEXT NOT NULL UNIQUE,
		value           TEXT NOT NULL,
		tags            TEXT,
		confidence      REAL NOT NULL DEFAULT 0,
		source_session  TEXT,
		created         TEXT NOT NULL,
		last_confirmed  TEXT NOT NULL,
		access_count    INTEGER NOT NULL DEFAULT 0,
		dirty           INTEGER NOT NULL DEFAULT 1
	);
	CREATE INDEX IF NOT EXISTS idx_facts_scope ON facts(scope);
	CREATE INDEX IF NOT EXISTS idx_facts_last_confirmed ON facts(last_confirmed DESC);
	CREATE INDEX IF NOT EXISTS idx_facts_dirty ON facts(dirty);

	CREATE TABLE IF NOT EXISTS pending_deletes (
		key        TEXT PRIMARY KEY,
		deleted_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// UpsertFact writes or overwrites a fact by key, marking it dirty and
// atomically removing any tombstone for that key.
func (s *SQLiteStore) UpsertFact(ctx context.Context, p UpsertParams) (*model.Fact, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(model.TimeFormat)

	var existingID, existingCreated string
	var accessCount int
	err = tx.QueryRowContext(ctx,
		`SELECT id, created, access_count FROM facts WHERE key = ?`, p.Key,
	).Scan(&existingID, &existingCreated, &accessCount)

	id := existingID
	created := existingCreated
	if err == sql.ErrNoRows {
		id = s.newID()
		created = now
		accessCount = 0
	} else if err != nil {
		return nil, err
	}

	var tagsJSON *string
	if len(p.Tags) > 0 {
		b, _ := json.Marshal(p.Tags)
		str := string(b)
		tagsJSON = &str
	}

	var sourceSession *string
	if p.SourceSession != "" {
		sourceSession = &p.SourceSession
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO facts (id, scope, key, value, tags, confidence, source_session, created, last_confirmed, access_count, dirty)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
		 ON CONFLICT(key) DO UPDATE SET
		   scope=excluded.scope, value=excluded.value, tags=excluded.tags,
		   confidence=excluded.confidence, source_session=excluded.source_session,
		   last_confirmed=excluded.last_confirmed, dirty=1`,
		id, p.Scope, p.Key, p.Value, tagsJSON, p.Confidence, sourceSession, created, now, accessCount)
	if err != nil {
		return nil, fmt.Errorf("upsert fact: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM pending_deletes WHERE key = ?`, p.Key); err != nil {
		return nil, fmt.Errorf("clear tombstone: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &model.Fact{
		ID: id, Scope: p.Scope, Key: p.Key, Value: p.Value, Tags: p.Tags,
		Confidence: p.Confidence, SourceSession: p.SourceSession,
		Created: created, LastConfirmed: now, AccessCount: accessCount, Dirty: true,
	}, nil
}

// DeleteFact removes the row and inserts a tombstone, but only if the
// row existed — deleting an absent key is a no-op, not a tombstone.
func (s *SQLiteStore) DeleteFact(ctx context.Context, key string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM facts WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("delete fact: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return tx.Commit()
	}

	now := time.Now().UTC().Format(model.TimeFormat)
	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO pending_deletes (key, deleted_at) VALUES (?, ?)`, key, now)
	if err != nil {
		return fmt.Errorf("insert tombstone: %w", err)
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetFact(ctx context.Context, key string) (*model.Fact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, scope, key, value, tags, confidence, source_session, created, last_confirmed, access_count, dirty
		 FROM facts WHERE key = ?`, key)
	f, err := scanFact(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("fact not found: %s", key)
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *SQLiteStore) ListAll(ctx context.Context) ([]model.Fact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, scope, key, value, tags, confidence, source_session, created, last_confirmed, access_count, dirty
		 FROM facts ORDER BY last_confirmed DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFacts(rows)
}

// ListByScope returns rows whose scope matches scope or is global.
func (s *SQLiteStore) ListByScope(ctx context.Context, scope string) ([]model.Fact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, scope, key, value, tags, confidence, source_session, created, last_confirmed, access_count, dirty
		 FROM facts WHERE scope = ? OR scope = ? ORDER BY last_confirmed DESC`, scope, model.ScopeGlobal)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFacts(rows)
}

func (s *SQLiteStore) GetDirty(ctx context.Context) ([]model.Fact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, scope, key, value, tags, confidence, source_session, created, last_confirmed, access_count, dirty
		 FROM facts WHERE dirty = 1 ORDER BY last_confirmed DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFacts(rows)
}

func (s *SQLiteStore) GetPendingDeletes(ctx context.Context) ([]model.PendingDelete, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, deleted_at FROM pending_deletes ORDER BY deleted_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PendingDelete
	for rows.Next() {
		var pd model.PendingDelete
		if err := rows.Scan(&pd.Key, &pd.DeletedAt); err != nil {
			return nil, err
		}
		out = append(out, pd)
	}
	return out, nil
}

// ClearDirty is called after a successful push: every dirty flag is
// cleared and pending_deletes is emptied in one transaction.
func (s *SQLiteStore) ClearDirty(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE facts SET dirty = 0 WHERE dirty = 1`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM pending_deletes`); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) IncrementAccessCount(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE facts SET access_count = access_count + 1 WHERE key = ?`, key)
	return err
}

func (s *SQLiteStore) GetMeta(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *SQLiteStore) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	return err
}

// ReplaceAll wipes all facts and pending_deletes and writes facts,
// clean (not dirty). Used exclusively by pull_and_reconstruct against
// a store with no prior local state.
func (s *SQLiteStore) ReplaceAll(ctx context.Context, facts []model.Fact) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM facts`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM pending_deletes`); err != nil {
		return err
	}

	for _, f := range facts {
		var tagsJSON *string
		if len(f.Tags) > 0 {
			b, _ := json.Marshal(f.Tags)
			str := string(b)
			tagsJSON = &str
		}
		var sourceSession *string
		if f.SourceSession != "" {
			sourceSession = &f.SourceSession
		}
		id := f.ID
		if id == "" {
			id = s.newID()
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO facts (id, scope, key, value, tags, confidence, source_session, created, last_confirmed, access_count, dirty)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
			id, f.Scope, f.Key, f.Value, tagsJSON, f.Confidence, sourceSession, f.Created, f.LastConfirmed, f.AccessCount)
		if err != nil {
			return fmt.Errorf("replace fact %s: %w", f.Key, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanFact(row scanner) (model.Fact, error) {
	var f model.Fact
	var tagsJSON, sourceSession sql.NullString
	var dirty int

	err := row.Scan(&f.ID, &f.Scope, &f.Key, &f.Value, &tagsJSON, &f.Confidence,
		&sourceSession, &f.Created, &f.LastConfirmed, &f.AccessCount, &dirty)
	if err != nil {
		return f, err
	}
	if sourceSession.Valid {
		f.SourceSession = sourceSession.String
	}
	if tagsJSON.Valid {
		json.Unmarshal([]byte(tagsJSON.String), &f.Tags)
	}
	f.Dirty = dirty == 1
	return f, nil
}

func scanFacts(rows *sql.Rows) ([]model.Fact, error) {
	var out []model.Fact
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}
