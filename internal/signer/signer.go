// Package signer signs and verifies shard/identity/conversation
// payloads using recoverable secp256k1 ECDSA signatures, mirroring the
// Ethereum wallet signature convention the wallet id derivation already
// follows.
package signer

import (
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/sha3"

	"github.com/agentvault/synccore/internal/keys"
)

// ContentHash returns the 32-byte Keccak-256 digest of data.
func ContentHash(data []byte) [32]byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Sign produces a 0x-prefixed, 130-hex-char recoverable signature
// (r || s || recovery_id) over the content hash of data.
func Sign(priv *secp256k1.PrivateKey, data []byte) (string, error) {
	hash := ContentHash(data)
	sig := ecdsa.SignCompact(priv, hash[:], false)
	// SignCompact returns recovery_id || r || s (65 bytes); the wire
	// format here is r || s || recovery_id to match the spec layout.
	if len(sig) != 65 {
		return "", fmt.Errorf("sign: unexpected signature length %d", len(sig))
	}
	recID := sig[0]
	rs := sig[1:]
	out := append(append([]byte{}, rs...), recID)
	return "0x" + fmt.Sprintf("%x", out), nil
}

// Verify recovers the signer's public key from sig and the recomputed
// content hash of data, derives its wallet id, and compares it
// case-insensitively against expectedWallet. Any parse or recovery
// failure returns false rather than an error.
func Verify(data []byte, sig string, expectedWallet string) bool {
	raw, ok := decodeHexSig(sig)
	if !ok || len(raw) != 65 {
		return false
	}
	r, s, recID := raw[:32], raw[32:64], raw[64]

	compact := make([]byte, 65)
	compact[0] = recID
	copy(compact[1:33], r)
	copy(compact[33:], s)

	hash := ContentHash(data)
	pub, _, err := ecdsa.RecoverCompact(compact, hash[:])
	if err != nil {
		return false
	}
	wallet := keys.WalletIDFromPublicKey(pub)
	return strings.EqualFold(wallet, expectedWallet)
}

func decodeHexSig(sig string) ([]byte, bool) {
	s := strings.TrimPrefix(strings.TrimPrefix(sig, "0x"), "0X")
	if len(s)%2 != 0 {
		return nil, false
	}
	out := make([]byte, len(s)/2)
	for i := 0; i < len(out); i++ {
		hi, ok1 := hexDigit(s[2*i])
		lo, ok2 := hexDigit(s[2*i+1])
		if !ok1 || !ok2 {
			return nil, false
		}
		out[i] = hi<<4 | lo
	}
	return out, true
}

func hexDigit(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}
