// Package ledger defines the narrow adapter the sync engine uploads
// to and queries, mirroring the pluggable-provider shape the teacher
// used for its embedding backends: a small interface plus concrete
// implementations behind it. The concrete upload transport for the
// real permanent ledger is an external collaborator (spec.md §1); this
// package only defines the boundary and a reference in-memory adapter
// used by the sync engine's own tests.
package ledger

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
)

// Tag is a single (name, value) pair attached to an upload.
type Tag struct {
	Name  string
	Value string
}

// UploadResult is returned by a successful Upload.
type UploadResult struct {
	TxID string
}

// Balance reports the wallet's remaining free-upload capacity.
type Balance struct {
	HumanReadable             string
	EstimatedUploadsRemaining int64
}

// TxMeta describes one matched transaction from QueryByTags, without
// fetching its body.
type TxMeta struct {
	TxID string
	Tags []Tag
}

// Adapter is the narrow interface the sync engine uploads to and
// queries. It does not enforce payload semantics — sizing and tagging
// are the sync engine's job (spec.md §4.7).
type Adapter interface {
	Upload(ctx context.Context, data []byte, tags []Tag) (UploadResult, error)
	Balance(ctx context.Context) (Balance, error)
	QueryByTags(ctx context.Context, filter []Tag) ([]TxMeta, error)
	FetchBlob(ctx context.Context, txID string, maxBytes int) ([]byte, error)
}

// TagValue returns the first value for name in tags, if present.
func TagValue(tags []Tag, name string) (string, bool) {
	for _, t := range tags {
		if t.Name == name {
			return t.Value, true
		}
	}
	return "", false
}

// HasTags reports whether tags contains every (name, value) pair in
// filter — QueryByTags semantics for adapters implemented over a
// simple tag index.
func HasTags(tags []Tag, filter []Tag) bool {
	for _, want := range filter {
		v, ok := TagValue(tags, want.Name)
		if !ok || v != want.Value {
			return false
		}
	}
	return true
}

// FormatBalance renders a raw unit balance and a per-upload cost
// estimate into a human-readable Balance, grounded on the teacher's
// use of dustin/go-humanize for presenting sizes/counts.
func FormatBalance(units uint64, avgUploadBytes uint64) Balance {
	remaining := int64(0)
	if avgUploadBytes > 0 {
		remaining = int64(units / avgUploadBytes)
	}
	return Balance{
		HumanReadable:             humanize.Bytes(units),
		EstimatedUploadsRemaining: remaining,
	}
}

// ErrNotFound is returned by FetchBlob when txID is unknown.
var ErrNotFound = fmt.Errorf("ledger: transaction not found")
