// Package phrase generates and validates the 12-word recovery phrase.
// It wraps tyler-smith/go-bip39, whose entropy/checksum/wordlist
// scheme is exactly the one spec.md describes: 128 bits of entropy, a
// 4-bit checksum equal to the top 4 bits of SHA-256(entropy), sliced
// into 12 x 11-bit word indices against the standard 2048-word English
// list.
package phrase

import (
	"fmt"
	"strings"

	"github.com/tyler-smith/go-bip39"
)

const entropyBits = 128 // -> 12 words

// Generate produces a fresh 12-word recovery phrase.
func Generate() (string, error) {
	entropy, err := bip39.NewEntropy(entropyBits)
	if err != nil {
		return "", fmt.Errorf("phrase: generate entropy: %w", err)
	}
	m, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("phrase: build mnemonic: %w", err)
	}
	return m, nil
}

// Normalize lowercases and collapses whitespace.
func Normalize(p string) string {
	return strings.Join(strings.Fields(strings.ToLower(p)), " ")
}

// Validate normalizes p and checks word membership and checksum,
// returning a distinct error for each failure mode.
func Validate(p string) error {
	normalized := Normalize(p)
	words := strings.Fields(normalized)
	if len(words) != 12 {
		return fmt.Errorf("phrase: expected 12 words, got %d", len(words))
	}
	for _, w := range words {
		if _, ok := wordIndex[w]; !ok {
			return fmt.Errorf("phrase: unknown word %q", w)
		}
	}
	if !bip39.IsMnemonicValid(normalized) {
		return fmt.Errorf("phrase: checksum mismatch")
	}
	return nil
}

// wordIndex is built once from the bip39 English wordlist so Validate
// can give a distinct "unknown word" error before falling through to
// the library's checksum check.
var wordIndex = buildWordIndex()

func buildWordIndex() map[string]int {
	list := bip39.GetWordList()
	idx := make(map[string]int, len(list))
	for i, w := range list {
		idx[w] = i
	}
	return idx
}
