// Package joincode generates and normalizes household join codes.
package joincode

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const (
	// Length is the number of characters in a join code.
	Length   = 6
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var alphabetSize = big.NewInt(int64(len(Alphabet)))

// Generate returns a random code of Length characters drawn uniformly from
// Alphabet. It makes no uniqueness promise; callers check for collisions.
func Generate() (string, error) {
	var b strings.Builder
	b.Grow(Length)
	for i := 0; i < Length; i++ {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		b.WriteByte(Alphabet[n.Int64()])
	}
	return b.String(), nil
}

// Normalize trims surrounding space and upper-cases ASCII letters. Other
// characters are left alone so they cannot fold into the alphabet.
func Normalize(code string) string {
	return strings.Map(func(r rune) rune {
		if 'a' <= r && r <= 'z' {
			return r - ('a' - 'A')
		}
		return r
	}, strings.TrimSpace(code))
}

// Valid reports whether code, after normalization, has the shape of a join code.
func Valid(code string) bool {
	code = Normalize(code)
	if len(code) != Length {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(Alphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}
