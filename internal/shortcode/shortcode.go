// Package shortcode generates random codes for short links.
package shortcode

import (
	"crypto/rand"
	"math/big"
)

const (
	// Alphabet is the fixed 62-symbol set codes are drawn from.
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	// DefaultLength is the standard code length.
	DefaultLength = 8
)

// Generate draws length symbols uniformly from Alphabet using the
// process-wide crypto/rand source. crypto/rand is safe for concurrent
// use and needs no seeding.
func Generate(length int) string {
	if length <= 0 {
		length = DefaultLength
	}

	b := make([]byte, length)
	for i := range b {
		idx, err := cryptoRandInt(len(Alphabet))
		if err != nil {
			// Should never happen with the OS entropy source.
			idx = 0
		}
		b[i] = Alphabet[idx]
	}
	return string(b)
}

// cryptoRandInt returns a cryptographically secure random integer in [0, max).
func cryptoRandInt(max int) (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()), nil
}
