// Package shard builds, size-bounds, serializes, and replays the
// operation shards that make up the sync log. Chunking here follows
// the same accumulate/flush shape the teacher's markdown chunker used
// for text blocks, but the unit being bounded is an encrypted, signed
// JSON shard rather than a text span, and the measurement is an actual
// encode rather than a character count.
package shard

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/agentvault/synccore/internal/aead"
	"github.com/agentvault/synccore/internal/model"
)

// FromFact strips local-only fields and builds the wire form of an
// upsert operation.
func FromFact(f model.Fact) model.ShardOperation {
	return model.ShardOperation{
		Op:         model.OpUpsert,
		Key:        f.Key,
		Value:      f.Value,
		Tags:       f.Tags,
		Scope:      f.Scope,
		Confidence: f.Confidence,
		FactID:     f.ID,
	}
}

// FromPendingDelete builds the wire form of a delete operation.
func FromPendingDelete(pd model.PendingDelete) model.ShardOperation {
	return model.ShardOperation{Op: model.OpDelete, Key: pd.Key}
}

// New builds a single shard from ops at the given version/session, with
// no size bound — callers that need the bound use Chunk instead.
func New(ops []model.ShardOperation, version uint, sessionID string, ts time.Time) model.Shard {
	return model.Shard{
		ShardVersion: version,
		Timestamp:    ts.UTC().Format(model.TimeFormat),
		SessionID:    sessionID,
		Operations:   ops,
	}
}

// Serialize produces the deterministic wire encoding of a shard: JSON
// over UTF-8 with struct field order fixed, so two machines encoding
// the same shard value produce byte-identical output.
func Serialize(s model.Shard) ([]byte, error) {
	return json.Marshal(s)
}

// Deserialize is the inverse of Serialize.
func Deserialize(b []byte) (model.Shard, error) {
	var s model.Shard
	if err := json.Unmarshal(b, &s); err != nil {
		return model.Shard{}, fmt.Errorf("shard: deserialize: %w", err)
	}
	return s, nil
}

// EncryptedSize returns the number of bytes a shard would occupy on
// the wire once serialized and encrypted: actual JSON length plus the
// constant AEAD overhead.
func EncryptedSize(s model.Shard) (int, error) {
	b, err := Serialize(s)
	if err != nil {
		return 0, err
	}
	return len(b) + aead.Overhead, nil
}

// Chunk splits ops into a sequence of shards with consecutive versions
// starting at startVersion such that each shard's encrypted size does
// not exceed limit, using sessionID for every shard in the sequence and
// now for every shard's timestamp (a push is one moment in time).
//
// Measurement is by actual encode, never a precomputed wrapper
// constant, because wrapper size varies with timestamp and session id
// width (per spec). A single operation that alone exceeds limit still
// goes out as its own one-operation shard — the chunker never drops
// data; ShardTooLarge is a diagnostic the caller can check for
// upstream, not a reason to discard anything here.
func Chunk(ops []model.ShardOperation, startVersion uint, sessionID string, now time.Time, limit int) ([]model.Shard, error) {
	if len(ops) == 0 {
		return nil, nil
	}

	var shards []model.Shard
	version := startVersion
	var accum []model.ShardOperation

	flush := func() error {
		if len(accum) == 0 {
			return nil
		}
		s := New(accum, version, sessionID, now)
		shards = append(shards, s)
		version++
		accum = nil
		return nil
	}

	for _, op := range ops {
		candidate := append(append([]model.ShardOperation{}, accum...), op)
		s := New(candidate, version, sessionID, now)
		size, err := EncryptedSize(s)
		if err != nil {
			return nil, fmt.Errorf("shard: measure candidate: %w", err)
		}

		if size <= limit {
			accum = candidate
			continue
		}

		if len(accum) == 0 {
			// This single operation alone exceeds the limit. It still
			// goes out as its own shard — errs.ErrShardTooLarge is a
			// diagnostic for upstream value validation, not a reason
			// for the chunker to discard data.
			shards = append(shards, s)
			version++
			continue
		}

		if err := flush(); err != nil {
			return nil, err
		}
		accum = []model.ShardOperation{op}
	}

	if err := flush(); err != nil {
		return nil, err
	}

	return shards, nil
}

// WrapperSize measures the fixed JSON wrapper cost (everything but the
// operations) for a realistic timestamp/session id, so callers can
// derive a sane lower bound for limit without hard-coding a constant.
func WrapperSize(sessionID string, now time.Time) (int, error) {
	empty := New(nil, 1, sessionID, now)
	return EncryptedSize(empty)
}
