package ledger

import "fmt"

// Pull safety caps (spec.md §4.7): defensive limits against a
// malicious uploader staking a wallet's tag namespace with oversized
// blobs. The sync engine passes them as FetchBlob's maxBytes; the
// adapter enforces them (MemoryAdapter returns ErrPayloadTooLarge).
const (
	MaxDataShardBytes = 100 * 1024
	MaxIdentityBytes  = 16 * 1024
)

// ErrPayloadTooLarge is returned by FetchBlob (or by a caller checking
// the cap itself) when a fetched blob exceeds the caller's cap.
var ErrPayloadTooLarge = fmt.Errorf("ledger: payload exceeds pull safety cap")
