package lifecycle

import (
	"math/rand/v2"
	"strings"
)

// CodeAlphabet is uppercase alphanumerics without 0 and O.
const CodeAlphabet = "ABCDEFGHIJKLMNPQRSTUVWXYZ123456789"

const CodeLength = 6

func NewWorldCode(r *rand.Rand) string {
	var b [CodeLength]byte
	for i := range b {
		var n int
		if r != nil {
			n = r.IntN(len(CodeAlphabet))
		} else {
			n = rand.IntN(len(CodeAlphabet))
		}
		b[i] = CodeAlphabet[n]
	}
	return string(b[:])
}

// NormalizeCode trims and uppercases user input.
func NormalizeCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ValidCodeLength is the only client-side check before a lookup.
func ValidCodeLength(code string) bool {
	return len(code) == CodeLength
}

// WellFormedCode also checks the alphabet.
func WellFormedCode(code string) bool {
	if !ValidCodeLength(code) {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(CodeAlphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}
