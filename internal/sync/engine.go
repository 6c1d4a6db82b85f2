// Package sync implements the sync engine (spec.md §4.8): pushing
// dirty local mutations to the ledger as encrypted, signed shards, and
// pulling them back to reconstruct full state on a fresh machine.
package sync

import (
	"crypto/rand"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/agentvault/synccore/internal/ledger"
	"github.com/agentvault/synccore/internal/store"
)

// Engine holds everything push/pull needs. The derived symmetric key
// and the identity private key live only in this struct's memory —
// never persisted in plaintext, never logged (spec.md §5).
type Engine struct {
	Store            store.Store
	Ledger           ledger.Adapter
	AppName          string
	Wallet           string
	PrivateKey       *secp256k1.PrivateKey
	SymKey           []byte
	FreeUploadBudget int
	Log              zerolog.Logger
}

// New builds an Engine. freeUploadBudget is the ledger's free-upload
// byte cap (config, not a literal — spec.md §9 open question).
func New(st store.Store, adapter ledger.Adapter, appName, wallet string, priv *secp256k1.PrivateKey, symKey []byte, freeUploadBudget int, log zerolog.Logger) *Engine {
	return &Engine{
		Store:            st,
		Ledger:           adapter,
		AppName:          appName,
		Wallet:           wallet,
		PrivateKey:       priv,
		SymKey:           symKey,
		FreeUploadBudget: freeUploadBudget,
		Log:              log,
	}
}

func newSessionID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}
