// Package keys derives the wallet keypair and the symmetric
// data-encryption key from a recovery phrase, deterministically.
package keys

import (
	"crypto/sha256"
	"fmt"
	"io"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/sha3"
)

// identitySalt and identityInfo are the constant extract-then-expand
// parameters for wallet keypair derivation. appName is baked in at
// init time by SetAppName so a single binary can't cross-derive
// identities for a differently-branded deployment by accident.
var (
	identitySalt = []byte("agentvault-identity-v1")
	identityInfo = []byte("secp256k1-private-key")
)

// SetAppName overrides the constant salt's app prefix. Call once at
// process start, before any derivation.
func SetAppName(name string) {
	identitySalt = []byte(name + "-identity-v1")
}

const (
	argon2Time    = 3
	argon2Memory  = 64 * 1024 // KiB -> ~64 MiB
	argon2Threads = 1
	argon2KeyLen  = 32
)

// Identity holds a derived secp256k1 keypair and its wallet id.
type Identity struct {
	PrivateKey *secp256k1.PrivateKey
	WalletID   string // 0x-prefixed lowercase hex, 20 bytes
}

// DeriveIdentity deterministically derives the wallet keypair from a
// recovery phrase via HKDF-SHA256 extract-then-expand with a constant
// salt/info pair, producing 32 bytes interpreted as a secp256k1 scalar.
// Values landing outside [1, N-1] (vanishingly unlikely) are re-derived
// by mixing in a counter; after 8 invalid attempts the function returns
// an error instead of a key.
func DeriveIdentity(phrase string) (*Identity, error) {
	phraseBytes := []byte(NormalizePhrase(phrase))

	for counter := 0; counter < 8; counter++ {
		info := identityInfo
		if counter > 0 {
			info = append(append([]byte{}, identityInfo...), byte(counter))
		}
		kdf := hkdf.New(sha256.New, phraseBytes, identitySalt, info)
		buf := make([]byte, 32)
		if _, err := io.ReadFull(kdf, buf); err != nil {
			return nil, fmt.Errorf("derive identity: hkdf expand: %w", err)
		}

		scalar := new(secp256k1.ModNScalar)
		overflow := scalar.SetByteSlice(buf)
		if overflow || scalar.IsZero() {
			continue
		}

		priv := secp256k1.NewPrivateKey(scalar)
		return &Identity{
			PrivateKey: priv,
			WalletID:   WalletIDFromPrivateKey(priv),
		}, nil
	}
	return nil, fmt.Errorf("derive identity: exhausted retries deriving a valid scalar")
}

// WalletIDFromPrivateKey derives the public wallet identifier from a
// private key: last_20_bytes(keccak256(pubkey.x || pubkey.y)),
// 0x-prefixed lowercase hex.
func WalletIDFromPrivateKey(priv *secp256k1.PrivateKey) string {
	return WalletIDFromPublicKey(priv.PubKey())
}

// WalletIDFromPublicKey derives the wallet identifier from a public key.
func WalletIDFromPublicKey(pub *secp256k1.PublicKey) string {
	uncompressed := pub.SerializeUncompressed() // 0x04 || x(32) || y(32)
	xy := uncompressed[1:]
	h := sha3.NewLegacyKeccak256()
	h.Write(xy)
	digest := h.Sum(nil)
	last20 := digest[len(digest)-20:]
	return "0x" + fmt.Sprintf("%x", last20)
}

// NormalizePhrase lowercases and collapses whitespace, matching the
// normalization phrase.Validate applies before checksum verification.
func NormalizePhrase(phrase string) string {
	fields := strings.Fields(strings.ToLower(phrase))
	return strings.Join(fields, " ")
}

// DeriveSymmetricKey derives the 256-bit data-encryption key from the
// lowercased, space-joined phrase and a 16-byte salt via Argon2id.
func DeriveSymmetricKey(phrase string, salt []byte) []byte {
	normalized := NormalizePhrase(phrase)
	return argon2.IDKey([]byte(normalized), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
}
