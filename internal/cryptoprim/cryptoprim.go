// Package cryptoprim wraps the primitive cryptographic operations the rest
// of the gateway builds on: HMAC-SHA256 signing, SHA-256 digests, CSPRNG
// byte generation, base64url and hex encoding, and constant-time comparison.
package cryptoprim

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// HMACSHA256 returns the HMAC-SHA256 of data under key.
func HMACSHA256(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write(data)
	return mac.Sum(nil)
}

// SHA256 returns the SHA-256 digest of data.
func SHA256(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

// RandomBytes returns n cryptographically random bytes. It panics if the OS
// entropy source fails, since a caller cannot recover from a broken CSPRNG
// and silently returning zeroed or short output would be worse.
func RandomBytes(n int) []byte {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("cryptoprim: random source failed: %v", err))
	}
	return buf
}

// Base64URLEncode encodes data without padding, matching JWT's encoding.
func Base64URLEncode(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

// Base64URLDecode decodes a base64url string without padding.
func Base64URLDecode(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(s)
}

// HexEncode returns the lowercase hex encoding of data.
func HexEncode(data []byte) string {
	return hex.EncodeToString(data)
}

// HexDecode decodes a lowercase (or mixed-case) hex string.
func HexDecode(s string) ([]byte, error) {
	return hex.DecodeString(s)
}

// ConstantTimeEqual reports whether a and b are equal in time independent of
// where they first differ. Unequal lengths are rejected in constant time
// relative to the shorter input.
func ConstantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}
