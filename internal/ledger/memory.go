package ledger

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryAdapter is an in-process reference Adapter, used by the sync
// engine's own tests in place of the real permanent-ledger transport
// (an external collaborator per spec.md §1). It is not a mock of a
// specific interface call sequence — it behaves like a real
// append-only tagged blob store, just without the permanence.
type MemoryAdapter struct {
	mu      sync.Mutex
	entries map[string]entry
	// Tamper, if set, is invoked on every FetchBlob result before it is
	// returned, letting tests corrupt a ciphertext to exercise
	// signature-rejection paths.
	Tamper func(txID string, data []byte) []byte
}

type entry struct {
	data []byte
	tags []Tag
}

// NewMemoryAdapter returns an empty adapter.
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{entries: make(map[string]entry)}
}

func (m *MemoryAdapter) Upload(_ context.Context, data []byte, tags []Tag) (UploadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	txID := uuid.NewString()
	m.entries[txID] = entry{data: append([]byte{}, data...), tags: append([]Tag{}, tags...)}
	return UploadResult{TxID: txID}, nil
}

func (m *MemoryAdapter) Balance(_ context.Context) (Balance, error) {
	return FormatBalance(10_000_000, 90_000), nil
}

func (m *MemoryAdapter) QueryByTags(_ context.Context, filter []Tag) ([]TxMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []TxMeta
	for txID, e := range m.entries {
		if HasTags(e.tags, filter) {
			out = append(out, TxMeta{TxID: txID, Tags: e.tags})
		}
	}
	return out, nil
}

func (m *MemoryAdapter) FetchBlob(_ context.Context, txID string, maxBytes int) ([]byte, error) {
	m.mu.Lock()
	e, ok := m.entries[txID]
	m.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	data := e.data
	if m.Tamper != nil {
		data = m.Tamper(txID, append([]byte{}, data...))
	}
	if len(data) > maxBytes {
		return nil, ErrPayloadTooLarge
	}
	return data, nil
}
