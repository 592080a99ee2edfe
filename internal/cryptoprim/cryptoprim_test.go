package cryptoprim

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHMACSHA256Deterministic(t *testing.T) {
	key := []byte("secret-key")
	data := []byte("payload")

	mac1 := HMACSHA256(key, data)
	mac2 := HMACSHA256(key, data)

	assert.Equal(t, mac1, mac2)
	assert.Len(t, mac1, 32)
}

func TestHMACSHA256DifferentKeysDiffer(t *testing.T) {
	data := []byte("payload")

	mac1 := HMACSHA256([]byte("key-one"), data)
	mac2 := HMACSHA256([]byte("key-two"), data)

	assert.NotEqual(t, mac1, mac2)
}

func TestSHA256KnownVector(t *testing.T) {
	// RFC/NIST test vector: SHA-256("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	want = want[:64]

	got := SHA256([]byte("abc"))
	assert.Equal(t, want, hex.EncodeToString(got))
}

func TestSHA256MatchesStdlib(t *testing.T) {
	data := []byte("the quick brown fox")
	want := sha256.Sum256(data)

	assert.Equal(t, want[:], SHA256(data))
}

func TestRandomBytesLengthAndUniqueness(t *testing.T) {
	a := RandomBytes(32)
	b := RandomBytes(32)

	assert.Len(t, a, 32)
	assert.Len(t, b, 32)
	assert.NotEqual(t, a, b)
}

func TestBase64URLRoundTrip(t *testing.T) {
	tests := [][]byte{
		[]byte(""),
		[]byte("a"),
		[]byte("hello world"),
		RandomBytes(33),
	}

	for _, data := range tests {
		encoded := Base64URLEncode(data)
		decoded, err := Base64URLDecode(encoded)
		require.NoError(t, err)
		assert.Equal(t, data, decoded)
	}
}

func TestHexRoundTrip(t *testing.T) {
	data := RandomBytes(16)

	encoded := HexEncode(data)
	decoded, err := HexDecode(encoded)

	require.NoError(t, err)
	assert.Equal(t, data, decoded)
}

func TestHexDecodeInvalid(t *testing.T) {
	_, err := HexDecode("not-hex!!")
	assert.Error(t, err)
}

func TestConstantTimeEqual(t *testing.T) {
	a := []byte("equal-bytes")
	b := []byte("equal-bytes")
	c := []byte("different!!")

	assert.True(t, ConstantTimeEqual(a, b))
	assert.False(t, ConstantTimeEqual(a, c))
}

func TestConstantTimeEqualLengthMismatch(t *testing.T) {
	assert.False(t, ConstantTimeEqual([]byte("short"), []byte("much longer input")))
}
