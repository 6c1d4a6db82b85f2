package sync

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/agentvault/synccore/internal/aead"
	"github.com/agentvault/synccore/internal/errs"
	"github.com/agentvault/synccore/internal/ledger"
	"github.com/agentvault/synccore/internal/model"
	"github.com/agentvault/synccore/internal/shard"
	"github.com/agentvault/synccore/internal/signer"
)

// PullAndReconstruct implements spec.md §4.8.5: the full-restore
// procedure run against an empty local store, given only a wallet id
// and recovery phrase. The caller has already derived priv/symKey
// (C1) and constructed e with them before calling this.
func (e *Engine) PullAndReconstruct(ctx context.Context) error {
	identityFilter := []ledger.Tag{
		{Name: tagAppName, Value: e.AppName},
		{Name: tagWallet, Value: e.Wallet},
		{Name: tagType, Value: typeIdentity},
	}
	identities, err := e.Ledger.QueryByTags(ctx, identityFilter)
	if err != nil {
		return fmt.Errorf("pull and reconstruct: query identity: %w", err)
	}
	if len(identities) == 0 {
		return errs.ErrIdentityMissing
	}
	idMeta := identities[0]

	// The salt is read and validated here (the caller already holds the
	// symmetric key it derives, per this function's doc comment) so a
	// malformed tag surfaces as a recovery error rather than silently
	// passing through to a decrypt failure with a confusing cause.
	saltHex, _ := ledger.TagValue(idMeta.Tags, tagSalt)
	if _, err := hexDecode(saltHex); err != nil {
		return fmt.Errorf("pull and reconstruct: decode salt: %w", err)
	}

	encryptedKey, err := e.Ledger.FetchBlob(ctx, idMeta.TxID, ledger.MaxIdentityBytes)
	if err != nil {
		return fmt.Errorf("pull and reconstruct: fetch identity blob: %w", err)
	}

	sig, ok := ledger.TagValue(idMeta.Tags, tagSignature)
	if !ok || !signer.Verify(encryptedKey, sig, e.Wallet) {
		return errs.ErrIdentityMismatch
	}

	decryptedKey, err := aead.Decrypt(e.SymKey, encryptedKey)
	if err != nil {
		return errs.ErrBadPassphrase
	}

	if !bytes.Equal(decryptedKey, e.PrivateKey.Serialize()) {
		return errs.ErrIdentityMismatch
	}

	shardTags := []ledger.Tag{
		{Name: tagAppName, Value: e.AppName},
		{Name: tagWallet, Value: e.Wallet},
	}
	all, err := e.Ledger.QueryByTags(ctx, shardTags)
	if err != nil {
		return fmt.Errorf("pull and reconstruct: query shards: %w", err)
	}

	var candidates []ledger.TxMeta
	for _, m := range all {
		t, ok := ledger.TagValue(m.Tags, tagType)
		if ok && (t == typeDelta || t == typeSnapshot) {
			candidates = append(candidates, m)
		}
	}

	if len(candidates) == 0 {
		if err := e.Store.ReplaceAll(ctx, nil); err != nil {
			return fmt.Errorf("pull and reconstruct: replace empty: %w", err)
		}
		return e.setMeta(ctx, model.MetaCurrentVersion, 0)
	}

	type candidate struct {
		meta    ledger.TxMeta
		version uint
		kind    string
	}
	parsed := make([]candidate, 0, len(candidates))
	var maxVersion uint
	for _, m := range candidates {
		v, _ := ledger.TagValue(m.Tags, tagVersion)
		var n uint
		fmt.Sscanf(v, "%d", &n)
		t, _ := ledger.TagValue(m.Tags, tagType)
		parsed = append(parsed, candidate{meta: m, version: n, kind: t})
		if n > maxVersion {
			maxVersion = n
		}
	}

	var snapshotVersion uint
	hasSnapshot := false
	for _, c := range parsed {
		if c.kind == typeSnapshot && (!hasSnapshot || c.version > snapshotVersion) {
			snapshotVersion = c.version
			hasSnapshot = true
		}
	}

	var selected []candidate
	for _, c := range parsed {
		if !hasSnapshot || c.version >= snapshotVersion {
			selected = append(selected, c)
		}
	}

	var survivors []model.Shard
	for _, c := range selected {
		blob, err := e.Ledger.FetchBlob(ctx, c.meta.TxID, ledger.MaxDataShardBytes)
		if err != nil {
			e.Log.Warn().Str("tx", c.meta.TxID).Err(err).Msg("pull: skipping shard, fetch failed")
			continue
		}
		sig, ok := ledger.TagValue(c.meta.Tags, tagSignature)
		if !ok || !signer.Verify(blob, sig, e.Wallet) {
			e.Log.Warn().Str("tx", c.meta.TxID).Msg("pull: skipping shard, signature missing or invalid")
			continue
		}
		plaintext, err := aead.Decrypt(e.SymKey, blob)
		if err != nil {
			e.Log.Warn().Str("tx", c.meta.TxID).Err(err).Msg("pull: skipping shard, decrypt failed")
			continue
		}
		s, err := shard.Deserialize(plaintext)
		if err != nil {
			e.Log.Warn().Str("tx", c.meta.TxID).Err(err).Msg("pull: skipping shard, deserialize failed")
			continue
		}
		survivors = append(survivors, s)
	}

	if len(survivors) == 0 {
		return errs.ErrNoRecoverableShards
	}

	sort.SliceStable(survivors, func(i, j int) bool {
		return survivors[i].ShardVersion < survivors[j].ShardVersion
	})
	facts := shard.Replay(survivors)

	if err := e.Store.ReplaceAll(ctx, facts); err != nil {
		return fmt.Errorf("pull and reconstruct: replace all: %w", err)
	}
	if err := e.Store.ClearDirty(ctx); err != nil {
		return fmt.Errorf("pull and reconstruct: clear dirty: %w", err)
	}
	if err := e.Store.SetMeta(ctx, model.MetaWalletAddress, e.Wallet); err != nil {
		return fmt.Errorf("pull and reconstruct: set wallet address: %w", err)
	}
	// current_version is the max version across all queried data
	// shards, not only the survivors, so an unreadable shard never
	// causes the same replay window to be re-attempted forever.
	return e.setMeta(ctx, model.MetaCurrentVersion, maxVersion)
}

// CheckRemoteVersion implements the supplemented sync.check_remote_version:
// the highest Version tag currently on the ledger for this wallet's
// data shards, without fetching any blob.
func (e *Engine) CheckRemoteVersion(ctx context.Context) (uint, error) {
	filter := []ledger.Tag{
		{Name: tagAppName, Value: e.AppName},
		{Name: tagWallet, Value: e.Wallet},
	}
	all, err := e.Ledger.QueryByTags(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("check remote version: query: %w", err)
	}
	var max uint
	for _, m := range all {
		t, ok := ledger.TagValue(m.Tags, tagType)
		if !ok || (t != typeDelta && t != typeSnapshot) {
			continue
		}
		v, _ := ledger.TagValue(m.Tags, tagVersion)
		var n uint
		fmt.Sscanf(v, "%d", &n)
		if n > max {
			max = n
		}
	}
	return max, nil
}
