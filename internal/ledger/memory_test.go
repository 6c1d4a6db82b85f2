package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAdapterUploadFetchRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()

	tags := []Tag{{Name: "App-Name", Value: "agentvault"}, {Name: "Wallet", Value: "0xabc"}}
	res, err := m.Upload(ctx, []byte("payload"), tags)
	require.NoError(t, err)
	assert.NotEmpty(t, res.TxID)

	blob, err := m.FetchBlob(ctx, res.TxID, 1024)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), blob)
}

func TestMemoryAdapterFetchMissingReturnsNotFound(t *testing.T) {
	m := NewMemoryAdapter()
	_, err := m.FetchBlob(context.Background(), "no-such-tx", 1024)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryAdapterFetchOversizedRejected(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()
	res, err := m.Upload(ctx, make([]byte, 100), nil)
	require.NoError(t, err)

	_, err = m.FetchBlob(ctx, res.TxID, 10)
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestMemoryAdapterQueryByTagsMatchesSubset(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()

	_, err := m.Upload(ctx, []byte("a"), []Tag{{Name: "Wallet", Value: "0x1"}, {Name: "Type", Value: "delta"}})
	require.NoError(t, err)
	_, err = m.Upload(ctx, []byte("b"), []Tag{{Name: "Wallet", Value: "0x2"}, {Name: "Type", Value: "delta"}})
	require.NoError(t, err)

	matches, err := m.QueryByTags(ctx, []Tag{{Name: "Wallet", Value: "0x1"}})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.True(t, HasTags(matches[0].Tags, []Tag{{Name: "Type", Value: "delta"}}))
}

func TestMemoryAdapterTamperHookAppliesToFetch(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()
	res, err := m.Upload(ctx, []byte("clean"), nil)
	require.NoError(t, err)

	m.Tamper = func(txID string, data []byte) []byte {
		return []byte("corrupted")
	}

	blob, err := m.FetchBlob(ctx, res.TxID, 1024)
	require.NoError(t, err)
	assert.Equal(t, []byte("corrupted"), blob)
}

func TestFormatBalance(t *testing.T) {
	b := FormatBalance(1_000_000, 1000)
	assert.Equal(t, int64(1000), b.EstimatedUploadsRemaining)
	assert.NotEmpty(t, b.HumanReadable)
}

func TestFormatBalanceZeroAvgUpload(t *testing.T) {
	b := FormatBalance(1_000_000, 0)
	assert.Equal(t, int64(0), b.EstimatedUploadsRemaining)
}
