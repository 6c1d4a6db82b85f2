package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/agentvault/synccore/internal/aead"
	"github.com/agentvault/synccore/internal/model"
	"github.com/agentvault/synccore/internal/signer"
)

// PushIdentity implements spec.md §4.8.3: a one-time upload of the
// encrypted private key as the raw payload, so another implementation
// fetching the transaction gets the AEAD blob directly rather than a
// wrapper format. The salt needed to re-derive the symmetric key and
// the signature over the encrypted blob both travel as tags, same as
// every data shard. No-op once meta.identity_pushed is set.
func (e *Engine) PushIdentity(ctx context.Context, salt []byte) error {
	_, ok, err := e.Store.GetMeta(ctx, model.MetaIdentityPushed)
	if err != nil {
		return fmt.Errorf("push identity: get meta: %w", err)
	}
	if ok {
		return nil
	}

	encryptedKey, err := aead.Encrypt(e.SymKey, e.PrivateKey.Serialize())
	if err != nil {
		return fmt.Errorf("push identity: encrypt private key: %w", err)
	}

	sig, err := signer.Sign(e.PrivateKey, encryptedKey)
	if err != nil {
		return fmt.Errorf("push identity: sign: %w", err)
	}

	now := time.Now()
	tags := identityTags(e.AppName, e.Wallet, now, hexEncode(salt))
	tags = withSignature(tags, sig)

	if _, err := e.Ledger.Upload(ctx, encryptedKey, tags); err != nil {
		return fmt.Errorf("push identity: upload: %w", err)
	}

	if err := e.Store.SetMeta(ctx, model.MetaIdentityPushed, "true"); err != nil {
		return fmt.Errorf("push identity: mark pushed: %w", err)
	}
	return nil
}
