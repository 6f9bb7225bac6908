package shortener

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Alphabet is the Base62 digit set, most significant digit first in encoded strings.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const base = uint64(len(Alphabet))

// ErrInvalidBase62 is returned by Decode for strings that are not valid Base62.
var ErrInvalidBase62 = errors.New("invalid base62 string")

// Encode converts a non-negative integer to its Base62 representation.
// Encode(0) is the first alphabet character.
func Encode(n uint64) string {
	if n == 0 {
		return string(Alphabet[0])
	}

	var buf [11]byte // 62^11 > 2^64

	i := len(buf)
	for n > 0 {
		i--
		buf[i] = Alphabet[n%base]
		n /= base
	}

	return string(buf[i:])
}

// Decode converts a Base62 string back to its integer value.
// The empty string decodes to 0. Characters outside Alphabet and values
// that do not fit in a uint64 are rejected.
func Decode(s string) (uint64, error) {
	var n uint64

	for i, c := range s {
		idx := strings.IndexRune(Alphabet, c)
		if idx == -1 {
			return 0, fmt.Errorf("%w: character %q at position %d", ErrInvalidBase62, c, i)
		}

		if n > (math.MaxUint64-uint64(idx))/base {
			return 0, fmt.Errorf("%w: value overflows uint64", ErrInvalidBase62)
		}

		n = n*base + uint64(idx)
	}

	return n, nil
}

// IsBase62 reports whether s is non-empty and made only of Alphabet characters.
func IsBase62(s string) bool {
	if s == "" {
		return false
	}

	for _, c := range s {
		if !strings.ContainsRune(Alphabet, c) {
			return false
		}
	}

	return true
}
