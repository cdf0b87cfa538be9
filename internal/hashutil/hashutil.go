package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashStrings returns the hex SHA256 of the provided strings joined with
// newline separators, so ("ab","c") and ("a","bc") hash differently.
func HashStrings(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Short truncates a digest for log output. It returns the digest unchanged
// when it is already shorter than n.
func Short(digest string, n int) string {
	if n <= 0 || len(digest) <= n {
		return digest
	}
	return digest[:n]
}
