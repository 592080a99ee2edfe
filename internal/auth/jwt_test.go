package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() *JWTManager {
	return NewJWTManager([]byte("access-secret-at-least-32-bytes!"), []byte("refresh-secret-at-least-32-byte"))
}

func TestJWTManagerAccessTokenRoundTrip(t *testing.T) {
	mgr := newTestManager()

	token, err := mgr.CreateAccessToken("user-1", "key-123")
	require.NoError(t, err)
	assert.Equal(t, 3, len(strings.Split(token, ".")))

	info, ok := mgr.VerifyAccessToken(token)
	require.True(t, ok)
	assert.Equal(t, "user-1", info.UserID)
	assert.Equal(t, "key-123", info.APIKeyID)
	assert.Equal(t, "access", info.TokenType)
	assert.Equal(t, LastErrorNone, mgr.LastError())
}

func TestJWTManagerRefreshTokenRoundTrip(t *testing.T) {
	mgr := newTestManager()

	token, err := mgr.CreateRefreshToken("user-1")
	require.NoError(t, err)

	info, ok := mgr.VerifyRefreshToken(token)
	require.True(t, ok)
	assert.Equal(t, "user-1", info.UserID)
	assert.NotEmpty(t, info.JTI)
}

func TestJWTManagerRejectsAccessTokenAsRefresh(t *testing.T) {
	mgr := newTestManager()
	token, err := mgr.CreateAccessToken("user-1", "")
	require.NoError(t, err)

	_, ok := mgr.VerifyRefreshToken(token)
	assert.False(t, ok)
}

func TestJWTManagerRejectsTamperedSignature(t *testing.T) {
	mgr := newTestManager()
	token, err := mgr.CreateAccessToken("user-1", "")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + "." + "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

	_, ok := mgr.VerifyAccessToken(tampered)
	assert.False(t, ok)
	assert.Equal(t, LastErrorInvalidSignature, mgr.LastError())
}

func TestJWTManagerRejectsMalformedToken(t *testing.T) {
	mgr := newTestManager()

	_, ok := mgr.VerifyAccessToken("not-a-jwt")
	assert.False(t, ok)
	assert.Equal(t, LastErrorInvalidFormat, mgr.LastError())
}

func TestJWTManagerRejectsWrongSecret(t *testing.T) {
	issuer := newTestManager()
	token, err := issuer.CreateAccessToken("user-1", "")
	require.NoError(t, err)

	verifier := NewJWTManager([]byte("a-totally-different-secret-here"), []byte("another-different-secret-value!"))
	_, ok := verifier.VerifyAccessToken(token)
	assert.False(t, ok)
	assert.Equal(t, LastErrorInvalidSignature, verifier.LastError())
}

func TestJWTManagerRevocation(t *testing.T) {
	mgr := newTestManager()
	token, err := mgr.CreateRefreshToken("user-1")
	require.NoError(t, err)

	info, ok := mgr.VerifyRefreshToken(token)
	require.True(t, ok)

	mgr.RevokeRefreshToken(info.JTI)

	_, ok = mgr.VerifyRefreshToken(token)
	assert.False(t, ok)
	assert.Equal(t, LastErrorRevoked, mgr.LastError())
	assert.Equal(t, 1, mgr.RevokedCount())

	mgr.ClearRevoked()
	assert.Equal(t, 0, mgr.RevokedCount())
}

func TestJWTManagerExpiredToken(t *testing.T) {
	mgr := newTestManager()
	mgr.accessTTL = -1 * time.Second

	token, err := mgr.CreateAccessToken("user-1", "")
	require.NoError(t, err)

	_, ok := mgr.VerifyAccessToken(token)
	assert.False(t, ok)
	assert.Equal(t, LastErrorExpired, mgr.LastError())
}

func TestJWTManagerConcurrentVerify(t *testing.T) {
	mgr := newTestManager()
	token, err := mgr.CreateAccessToken("user-1", "")
	require.NoError(t, err)

	done := make(chan bool, 20)
	for i := 0; i < 20; i++ {
		go func() {
			_, ok := mgr.VerifyAccessToken(token)
			done <- ok
		}()
	}
	for i := 0; i < 20; i++ {
		assert.True(t, <-done)
	}
}
