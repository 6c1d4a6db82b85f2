// Package errs defines the sync core's closed error taxonomy. Every
// kind here is observable by callers via errors.Is against the
// exported sentinels; wrapping with fmt.Errorf("...: %w", ErrX) keeps
// the call-site context while preserving the kind.
package errs

import "errors"

var (
	// ErrUninitialized means expected local state is absent.
	ErrUninitialized = errors.New("uninitialized")
	// ErrAlreadyInitialized means init was attempted on a populated home.
	ErrAlreadyInitialized = errors.New("already initialized")
	// ErrBadPhrase means wordlist or checksum validation failed.
	ErrBadPhrase = errors.New("bad recovery phrase")
	// ErrBadPassphrase means decryption of the identity payload failed.
	ErrBadPassphrase = errors.New("bad passphrase")
	// ErrIdentityMissing means no identity record exists on the ledger.
	ErrIdentityMissing = errors.New("identity record missing")
	// ErrIdentityMismatch means the identity record on the ledger
	// couldn't be trusted: either its signature didn't verify against
	// the wallet, or the decrypted key didn't match the derived one.
	ErrIdentityMismatch = errors.New("identity mismatch")
	// ErrNoRecoverableShards means the identity matched but no shard
	// survived signature verification and decryption.
	ErrNoRecoverableShards = errors.New("no recoverable shards")
	// ErrCipherTampered means authenticated decryption failed.
	ErrCipherTampered = errors.New("ciphertext tampered or wrong key")
	// ErrShardTooLarge means a single operation exceeds the upload budget.
	ErrShardTooLarge = errors.New("shard exceeds upload budget")
	// ErrNetworkError means a transient ledger adapter failure.
	ErrNetworkError = errors.New("network error")
	// ErrLedgerRejected means the adapter returned a non-transient error.
	ErrLedgerRejected = errors.New("ledger rejected upload")
)
