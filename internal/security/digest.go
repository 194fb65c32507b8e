package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/pbkdf2"
)

// Digest parameters. The iteration count follows the minimum the token
// storage format requires; changing it invalidates every persisted digest.
const (
	digestIterations = 1000
	digestKeyLen     = 32
)

// HashToken computes the storage-safe digest of a token's random value:
// PBKDF2-HMAC-SHA256 over the value with the fixed server salt, hex-encoded.
// Deterministic for a given salt, so session rows can be looked up by digest.
func (s *TokenService) HashToken(raw string) string {
	key := pbkdf2.Key([]byte(raw), s.salt, digestIterations, digestKeyLen, sha256.New)
	return hex.EncodeToString(key)
}

// DigestEqual compares a raw token value against a stored digest in constant
// time.
func (s *TokenService) DigestEqual(raw, storedDigest string) bool {
	computed := s.HashToken(raw)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedDigest)) == 1
}
