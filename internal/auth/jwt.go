package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/veloz-systems/gateway/internal/cryptoprim"
)

const (
	defaultAccessTokenTTL  = 3600 * time.Second
	defaultRefreshTokenTTL = 604800 * time.Second
	defaultClockSkew       = 5 * time.Second
)

// LastErrorKind classifies why the most recent verification failed. It is
// kept for logging/metrics and is never returned to the client directly.
type LastErrorKind string

const (
	LastErrorNone              LastErrorKind = ""
	LastErrorInvalidFormat     LastErrorKind = "invalid_format"
	LastErrorInvalidBase64     LastErrorKind = "invalid_base64"
	LastErrorInvalidJSON       LastErrorKind = "invalid_json"
	LastErrorExpired           LastErrorKind = "expired"
	LastErrorFutureIssued      LastErrorKind = "future_issued"
	LastErrorInvalidSignature  LastErrorKind = "invalid_signature"
	LastErrorMissingClaims     LastErrorKind = "missing_claims"
	LastErrorRevoked           LastErrorKind = "revoked"
	LastErrorAlgorithmMismatch LastErrorKind = "algorithm_mismatch"
)

var errAlgorithmMismatch = errors.New("auth: unexpected signing algorithm")

// TokenInfo is what a successful verification yields.
type TokenInfo struct {
	UserID    string
	APIKeyID  string
	TokenType string
	JTI       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// JWTManager issues and verifies HS256 access/refresh tokens and tracks
// revoked refresh-token JTIs. Access and refresh secrets may be the same
// slice or distinct.
type JWTManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	clockSkew     time.Duration

	revokedMu sync.RWMutex
	revoked   map[string]struct{}

	lastErrMu sync.Mutex
	lastErr   LastErrorKind
}

// NewJWTManager builds a manager with the given HMAC secrets. Both must be
// at least 32 bytes; callers enforce that at configuration load time.
func NewJWTManager(accessSecret, refreshSecret []byte) *JWTManager {
	return &JWTManager{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		accessTTL:     defaultAccessTokenTTL,
		refreshTTL:    defaultRefreshTokenTTL,
		clockSkew:     defaultClockSkew,
		revoked:       make(map[string]struct{}),
	}
}

// SetAccessTokenTTL overrides the access token lifetime, per
// VELOZ_JWT_ACCESS_EXPIRY.
func (m *JWTManager) SetAccessTokenTTL(ttl time.Duration) {
	if ttl > 0 {
		m.accessTTL = ttl
	}
}

// SetRefreshTokenTTL overrides the refresh token lifetime, per
// VELOZ_JWT_REFRESH_EXPIRY.
func (m *JWTManager) SetRefreshTokenTTL(ttl time.Duration) {
	if ttl > 0 {
		m.refreshTTL = ttl
	}
}

// CreateAccessToken signs a short-lived access token for userID, optionally
// scoped to the API key that authenticated the session that requested it.
func (m *JWTManager) CreateAccessToken(userID, apiKeyID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  userID,
		"iat":  now.Unix(),
		"exp":  now.Add(m.accessTTL).Unix(),
		"type": "access",
	}
	if apiKeyID != "" {
		claims["api_key_id"] = apiKeyID
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.accessSecret)
}

// CreateRefreshToken signs a long-lived refresh token carrying a fresh jti.
func (m *JWTManager) CreateRefreshToken(userID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  userID,
		"iat":  now.Unix(),
		"exp":  now.Add(m.refreshTTL).Unix(),
		"type": "refresh",
		"jti":  cryptoprim.HexEncode(cryptoprim.RandomBytes(16)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.refreshSecret)
}

// VerifyAccessToken verifies token as an access token.
func (m *JWTManager) VerifyAccessToken(token string) (*TokenInfo, bool) {
	return m.verify(token, m.accessSecret, "access")
}

// VerifyRefreshToken verifies token as a refresh token and rejects revoked jtis.
func (m *JWTManager) VerifyRefreshToken(token string) (*TokenInfo, bool) {
	return m.verify(token, m.refreshSecret, "refresh")
}

// LastError returns the kind of the most recent verification failure (or
// LastErrorNone if the most recent call succeeded).
func (m *JWTManager) LastError() LastErrorKind {
	m.lastErrMu.Lock()
	defer m.lastErrMu.Unlock()
	return m.lastErr
}

func (m *JWTManager) setLastError(kind LastErrorKind) {
	m.lastErrMu.Lock()
	m.lastErr = kind
	m.lastErrMu.Unlock()
}

func (m *JWTManager) fail(kind LastErrorKind) (*TokenInfo, bool) {
	m.setLastError(kind)
	return nil, false
}

func (m *JWTManager) verify(token string, secret []byte, wantType string) (*TokenInfo, bool) {
	keyFunc := func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok || t.Method.Alg() != "HS256" {
			return nil, errAlgorithmMismatch
		}
		return secret, nil
	}

	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	_, err := parser.ParseWithClaims(token, claims, keyFunc)
	if err != nil {
		return m.fail(classifyParseError(err))
	}

	sub, _ := claims["sub"].(string)
	typ, _ := claims["type"].(string)
	iat, iatOK := numericClaim(claims["iat"])
	exp, expOK := numericClaim(claims["exp"])
	if sub == "" || typ == "" || !iatOK || !expOK {
		return m.fail(LastErrorMissingClaims)
	}

	now := time.Now()
	if iat.After(now.Add(m.clockSkew)) {
		return m.fail(LastErrorFutureIssued)
	}
	if !exp.After(now) {
		return m.fail(LastErrorExpired)
	}
	if typ != wantType {
		return m.fail(LastErrorMissingClaims)
	}

	info := &TokenInfo{
		UserID:    sub,
		TokenType: typ,
		IssuedAt:  iat,
		ExpiresAt: exp,
	}
	if v, ok := claims["api_key_id"].(string); ok {
		info.APIKeyID = v
	}

	if wantType == "refresh" {
		jti, _ := claims["jti"].(string)
		if jti == "" {
			return m.fail(LastErrorMissingClaims)
		}
		if m.IsRevoked(jti) {
			return m.fail(LastErrorRevoked)
		}
		info.JTI = jti
	}

	m.setLastError(LastErrorNone)
	return info, true
}

func numericClaim(v interface{}) (time.Time, bool) {
	switch n := v.(type) {
	case float64:
		return time.Unix(int64(n), 0), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return time.Time{}, false
		}
		return time.Unix(i, 0), true
	default:
		return time.Time{}, false
	}
}

func classifyParseError(err error) LastErrorKind {
	switch {
	case errors.Is(err, errAlgorithmMismatch):
		return LastErrorAlgorithmMismatch
	case errors.Is(err, jwt.ErrTokenExpired):
		return LastErrorExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return LastErrorFutureIssued
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return LastErrorInvalidSignature
	case errors.Is(err, jwt.ErrTokenInvalidClaims):
		return LastErrorMissingClaims
	}

	var corrupt base64.CorruptInputError
	if errors.As(err, &corrupt) {
		return LastErrorInvalidBase64
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return LastErrorInvalidJSON
	}
	return LastErrorInvalidFormat
}

// RevokeRefreshToken adds jti to the revocation set.
func (m *JWTManager) RevokeRefreshToken(jti string) {
	m.revokedMu.Lock()
	m.revoked[jti] = struct{}{}
	m.revokedMu.Unlock()
}

// IsRevoked reports whether jti has been revoked.
func (m *JWTManager) IsRevoked(jti string) bool {
	m.revokedMu.RLock()
	defer m.revokedMu.RUnlock()
	_, ok := m.revoked[jti]
	return ok
}

// RevokedCount returns the size of the revocation set.
func (m *JWTManager) RevokedCount() int {
	m.revokedMu.RLock()
	defer m.revokedMu.RUnlock()
	return len(m.revoked)
}

// ClearRevoked empties the revocation set. Callers are responsible for
// pruning only jtis whose tokens have already expired.
func (m *JWTManager) ClearRevoked() {
	m.revokedMu.Lock()
	m.revoked = make(map[string]struct{})
	m.revokedMu.Unlock()
}
