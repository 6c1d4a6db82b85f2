// Package model defines the core memory and sync data types.
package model

import "time"

// TimeFormat is the fixed text calendar format used for all persisted
// and wire timestamps. UTC always.
const TimeFormat = time.RFC3339

// ScopeGlobal is the literal global scope value; every other scope has
// the form "project:<name>".
const ScopeGlobal = "global"

// Fact is a single piece of structured memory.
type Fact struct {
	ID            string   `json:"id"`
	Scope         string   `json:"scope"`
	Key           string   `json:"key"`
	Value         string   `json:"value"`
	Tags          []string `json:"tags,omitempty"`
	Confidence    float64  `json:"confidence"`
	SourceSession string   `json:"source_session,omitempty"`
	Created       string   `json:"created"`
	LastConfirmed string   `json:"last_confirmed"`
	AccessCount   int      `json:"access_count"`
	Dirty         bool     `json:"-"`
}

// PendingDelete is a tombstone recorded when a present fact is deleted.
// Re-creating a fact with the same key atomically removes its tombstone.
type PendingDelete struct {
	Key       string `json:"key"`
	DeletedAt string `json:"deleted_at"`
}

// Meta keys used in the local store's meta table.
const (
	MetaCurrentVersion    = "current_version"
	MetaLastPushedVersion = "last_pushed_version"
	MetaWalletAddress     = "wallet_address"
	MetaIdentityPushed    = "identity_pushed"
)

// ConversationOffsetKey builds the meta key tracking how many messages of
// a given (client, session) have already been uploaded to the ledger.
func ConversationOffsetKey(client, session string) string {
	return "conversation_offset:" + client + ":" + session
}
