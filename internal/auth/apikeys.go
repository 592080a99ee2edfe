// Package auth implements credential issuance and verification: API keys,
// JWTs, bitmask RBAC, and the coordinator that picks between them.
package auth

import (
	"sync"
	"time"

	svcerrors "github.com/veloz-systems/gateway/infrastructure/errors"
	"github.com/veloz-systems/gateway/internal/cryptoprim"
)

// ApiKey is an issued API key record. Raw key material is never stored; only
// its SHA-256 hash is kept.
type ApiKey struct {
	KeyID       string
	KeyHash     [32]byte
	UserID      string
	Name        string
	Permissions map[string]struct{}
	CreatedAt   time.Time
	LastUsedAt  time.Time
	Revoked     bool
}

// Clone returns a copy of the key record safe to hand to callers outside the
// store's lock.
func (k *ApiKey) Clone() *ApiKey {
	perms := make(map[string]struct{}, len(k.Permissions))
	for p := range k.Permissions {
		perms[p] = struct{}{}
	}
	clone := *k
	clone.Permissions = perms
	return &clone
}

// ApiKeyStore is a hash-indexed store of API keys. A single lock guards both
// the id→record and hash→id maps; crypto work happens outside the lock.
type ApiKeyStore struct {
	mu     sync.RWMutex
	byID   map[string]*ApiKey
	byHash map[[32]byte]string
}

// NewApiKeyStore returns an empty key store.
func NewApiKeyStore() *ApiKeyStore {
	return &ApiKeyStore{
		byID:   make(map[string]*ApiKey),
		byHash: make(map[[32]byte]string),
	}
}

// Create generates a 32-byte random key, hex-encodes it into the 64-char raw
// key, and stores only its SHA-256 hash. The raw key is returned exactly
// once; it cannot be recovered afterward.
func (s *ApiKeyStore) Create(userID, name string, permissions []string) (keyID, rawKey string, err error) {
	rawBytes := cryptoprim.RandomBytes(32)
	rawKey = cryptoprim.HexEncode(rawBytes)
	var hash [32]byte
	copy(hash[:], cryptoprim.SHA256(rawBytes))

	permSet := make(map[string]struct{}, len(permissions))
	for _, p := range permissions {
		permSet[p] = struct{}{}
	}

	idBytes := cryptoprim.RandomBytes(8)
	keyID = cryptoprim.HexEncode(idBytes)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, collision := s.byHash[hash]; collision {
		return "", "", svcerrors.Internal("API key hash collision", nil)
	}
	for s.byID[keyID] != nil {
		idBytes = cryptoprim.RandomBytes(8)
		keyID = cryptoprim.HexEncode(idBytes)
	}

	now := time.Now()
	s.byID[keyID] = &ApiKey{
		KeyID:       keyID,
		KeyHash:     hash,
		UserID:      userID,
		Name:        name,
		Permissions: permSet,
		CreatedAt:   now,
		LastUsedAt:  now,
	}
	s.byHash[hash] = keyID

	return keyID, rawKey, nil
}

// Validate verifies a raw API key string and returns the matching record on
// success, updating last_used_at. It rejects malformed input (wrong length
// or non-hex characters) the same way it rejects a missing key, so probing
// can't distinguish "wrong format" from "not found".
func (s *ApiKeyStore) Validate(rawKey string) (*ApiKey, bool) {
	if len(rawKey) != 64 {
		return nil, false
	}
	decoded, err := cryptoprim.HexDecode(rawKey)
	if err != nil {
		return nil, false
	}

	var hash [32]byte
	copy(hash[:], cryptoprim.SHA256(decoded))

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byHash[hash]
	if !ok {
		return nil, false
	}
	key := s.byID[id]
	if key == nil || key.Revoked {
		return nil, false
	}
	key.LastUsedAt = time.Now()
	return key.Clone(), true
}

// Revoke marks a key revoked and drops its hash index entry so future
// validations report not-found. Idempotent: a second call returns false.
func (s *ApiKeyStore) Revoke(keyID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.byID[keyID]
	if !ok || key.Revoked {
		return false
	}
	key.Revoked = true
	delete(s.byHash, key.KeyHash)
	return true
}

// List returns clones of all keys owned by userID.
func (s *ApiKeyStore) List(userID string) []*ApiKey {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]*ApiKey, 0)
	for _, key := range s.byID {
		if key.UserID == userID {
			keys = append(keys, key.Clone())
		}
	}
	return keys
}

// ActiveCount returns the number of non-revoked keys.
func (s *ApiKeyStore) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, key := range s.byID {
		if !key.Revoked {
			count++
		}
	}
	return count
}
