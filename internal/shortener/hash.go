package shortener

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashURL computes a SHA256 hash of the long URL exactly as given.
// Returns the hash as a hex-encoded string.
func HashURL(longURL string) URLHash {
	h := sha256.Sum256([]byte(longURL))

	return URLHash(hex.EncodeToString(h[:]))
}
