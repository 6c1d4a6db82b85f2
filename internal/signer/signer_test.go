package signer

import (
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentvault/synccore/internal/keys"
)

func newTestKey(t *testing.T) (*secp256k1.PrivateKey, string) {
	t.Helper()
	id, err := keys.DeriveIdentity("abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about")
	require.NoError(t, err)
	return id.PrivateKey, id.WalletID
}

func TestSignVerifyRoundTrip(t *testing.T) {
	priv, wallet := newTestKey(t)
	data := []byte("shard payload bytes")

	sig, err := Sign(priv, data)
	require.NoError(t, err)
	assert.True(t, Verify(data, sig, wallet))
}

func TestVerifyFailsOnTamperedData(t *testing.T) {
	priv, wallet := newTestKey(t)
	data := []byte("shard payload bytes")

	sig, err := Sign(priv, data)
	require.NoError(t, err)

	assert.False(t, Verify([]byte("different payload bytes"), sig, wallet))
}

func TestVerifyFailsOnWrongWallet(t *testing.T) {
	priv, _ := newTestKey(t)
	data := []byte("shard payload bytes")

	sig, err := Sign(priv, data)
	require.NoError(t, err)

	assert.False(t, Verify(data, sig, "0x0000000000000000000000000000000000000000"))
}

func TestVerifyFailsOnMalformedSignature(t *testing.T) {
	_, wallet := newTestKey(t)
	assert.False(t, Verify([]byte("data"), "not-hex", wallet))
	assert.False(t, Verify([]byte("data"), "0xdead", wallet))
}

func TestSignatureFormat(t *testing.T) {
	priv, _ := newTestKey(t)
	sig, err := Sign(priv, []byte("data"))
	require.NoError(t, err)
	assert.Equal(t, "0x", sig[:2])
	assert.Len(t, sig, 132) // 0x + 130 hex chars
}
