// Package base36 encodes unsigned integers as short radix-36 strings.
package base36

import (
	"math/big"
	"strconv"
)

// Radix is the numeric base of the encoding.
const Radix = 36

// Encode returns the shortest radix-36 representation of n using digits 0-9a-z.
func Encode(n uint64) string {
	return strconv.FormatUint(n, Radix)
}

// Decode parses a radix-36 string produced by Encode.
// It returns false on empty input, characters outside 0-9a-z or values overflowing 64 bits.
func Decode(s string) (uint64, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'z') {
			return 0, false
		}
	}

	n, ok := new(big.Int).SetString(s, Radix)
	if !ok || !n.IsUint64() {
		return 0, false
	}
	return n.Uint64(), true
}
