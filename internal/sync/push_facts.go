package sync

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/agentvault/synccore/internal/aead"
	"github.com/agentvault/synccore/internal/errs"
	"github.com/agentvault/synccore/internal/ledger"
	"github.com/agentvault/synccore/internal/model"
	"github.com/agentvault/synccore/internal/shard"
	"github.com/agentvault/synccore/internal/signer"
)

// PushFacts implements spec.md §4.8.2. Reads the dirty facts and the
// pending deletes (two separate store reads, not one transaction),
// chunks them, and uploads shards in strict version order. Partial
// failure aborts the remaining push: shards already confirmed stay on
// the ledger, local dirty flags are untouched, and current_version is
// not advanced, so the next tick re-chunks the whole dirty set from the
// same start_version and re-emits the versions already uploaded.
func (e *Engine) PushFacts(ctx context.Context) error {
	dirty, err := e.Store.GetDirty(ctx)
	if err != nil {
		return fmt.Errorf("push facts: get dirty: %w", err)
	}
	pending, err := e.Store.GetPendingDeletes(ctx)
	if err != nil {
		return fmt.Errorf("push facts: get pending deletes: %w", err)
	}
	if len(dirty) == 0 && len(pending) == 0 {
		return nil
	}

	ops := make([]model.ShardOperation, 0, len(dirty)+len(pending))
	for _, f := range dirty {
		ops = append(ops, shard.FromFact(f))
	}
	for _, pd := range pending {
		ops = append(ops, shard.FromPendingDelete(pd))
	}

	startVersion, err := e.readCurrentVersion(ctx)
	if err != nil {
		return fmt.Errorf("push facts: read current version: %w", err)
	}
	startVersion++

	sessionID := newSessionID()
	shards, err := shard.Chunk(ops, startVersion, sessionID, time.Now(), e.FreeUploadBudget)
	if err != nil {
		return fmt.Errorf("push facts: chunk: %w", err)
	}

	var lastUploaded uint
	for _, s := range shards {
		if err := e.uploadShard(ctx, s, model.ShardDelta); err != nil {
			// Abort the remaining push. Everything already uploaded
			// stays committed; dirty flags are untouched so the next
			// tick retries the whole dirty set.
			if lastUploaded > 0 {
				e.setMeta(ctx, model.MetaLastPushedVersion, lastUploaded)
			}
			return fmt.Errorf("push facts: upload shard v%d: %w", s.ShardVersion, err)
		}
		lastUploaded = s.ShardVersion
		if err := e.setMeta(ctx, model.MetaLastPushedVersion, lastUploaded); err != nil {
			return fmt.Errorf("push facts: advance last_pushed_version: %w", err)
		}
	}

	if len(shards) == 0 {
		return nil
	}

	if err := e.Store.ClearDirty(ctx); err != nil {
		return fmt.Errorf("push facts: clear dirty: %w", err)
	}
	if err := e.setMeta(ctx, model.MetaCurrentVersion, lastUploaded); err != nil {
		return fmt.Errorf("push facts: advance current_version: %w", err)
	}
	return nil
}

// PushSnapshot folds all current local facts into a single
// Type=snapshot shard at the next version, so a recovering machine can
// skip replaying the full delta history (spec.md glossary names
// "Snapshot shard" without specifying production; supplemented here).
func (e *Engine) PushSnapshot(ctx context.Context) error {
	facts, err := e.Store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("push snapshot: list all: %w", err)
	}
	ops := make([]model.ShardOperation, 0, len(facts))
	for _, f := range facts {
		ops = append(ops, shard.FromFact(f))
	}
	if len(ops) == 0 {
		return nil
	}

	startVersion, err := e.readCurrentVersion(ctx)
	if err != nil {
		return fmt.Errorf("push snapshot: read current version: %w", err)
	}
	startVersion++

	shards, err := shard.Chunk(ops, startVersion, newSessionID(), time.Now(), e.FreeUploadBudget)
	if err != nil {
		return fmt.Errorf("push snapshot: chunk: %w", err)
	}

	var lastUploaded uint
	for _, s := range shards {
		if err := e.uploadShard(ctx, s, model.ShardSnapshot); err != nil {
			return fmt.Errorf("push snapshot: upload shard v%d: %w", s.ShardVersion, err)
		}
		lastUploaded = s.ShardVersion
	}
	return e.setMeta(ctx, model.MetaCurrentVersion, lastUploaded)
}

// uploadShard serializes, encrypts, signs, and uploads one shard,
// retrying transient network failures with exponential backoff.
func (e *Engine) uploadShard(ctx context.Context, s model.Shard, kind model.ShardKind) error {
	plaintext, err := shard.Serialize(s)
	if err != nil {
		// Serialization errors are fatal for this tick, never retried.
		return fmt.Errorf("serialize: %w", err)
	}
	sealed, err := aead.Encrypt(e.SymKey, plaintext)
	if err != nil {
		return fmt.Errorf("encrypt: %w", err)
	}
	sig, err := signer.Sign(e.PrivateKey, sealed)
	if err != nil {
		return fmt.Errorf("sign: %w", err)
	}

	now := time.Now()
	tags := dataShardTags(e.AppName, e.Wallet, now, kind, s.ShardVersion)
	tags = withSignature(tags, sig)

	_, err = backoff.Retry(ctx, func() (ledger.UploadResult, error) {
		res, uerr := e.Ledger.Upload(ctx, sealed, tags)
		if uerr != nil {
			e.Log.Warn().Err(uerr).Uint("version", uint(s.ShardVersion)).Msg("shard upload failed, retrying")
			return ledger.UploadResult{}, fmt.Errorf("%w: %v", errs.ErrNetworkError, uerr)
		}
		return res, nil
	}, backoff.WithMaxTries(5))
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrLedgerRejected, err)
	}
	return nil
}

func (e *Engine) readCurrentVersion(ctx context.Context) (uint, error) {
	v, ok, err := e.Store.GetMeta(ctx, model.MetaCurrentVersion)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse current_version %q: %w", v, err)
	}
	return uint(n), nil
}

func (e *Engine) setMeta(ctx context.Context, key string, version uint) error {
	return e.Store.SetMeta(ctx, key, strconv.FormatUint(uint64(version), 10))
}
