package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Hash returns the lowercase hex SHA-256 digest of the UTF-8 bytes of
// plaintext. The same input always yields the same digest, which is what
// stored account digests are compared against.
func Hash(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether plaintext hashes to digest.
func Verify(plaintext, digest string) bool {
	return subtle.ConstantTimeCompare([]byte(Hash(plaintext)), []byte(digest)) == 1
}
