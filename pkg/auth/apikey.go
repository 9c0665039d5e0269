package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
)

// KeyStore maps hashed API keys to caller names. Thread-safe.
// Keys are stored as SHA-256 hashes to protect against memory dumps.
type KeyStore struct {
	mu   sync.RWMutex
	keys map[string]string // SHA-256(apiKey) → caller
}

// NewKeyStore parses a comma-separated "caller:key" list, as found in
// MCP_HTTP_API_KEYS. Example: "claude-desktop:sk-abc,ops:sk-def"
func NewKeyStore(raw string) *KeyStore {
	ks := &KeyStore{keys: make(map[string]string)}
	if raw == "" {
		return ks
	}
	for _, pair := range strings.Split(raw, ",") {
		caller, key, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok {
			continue
		}
		caller, key = strings.TrimSpace(caller), strings.TrimSpace(key)
		if caller == "" || key == "" {
			continue
		}
		ks.keys[hashKey(key)] = caller
	}
	return ks
}

// Lookup returns the caller registered for apiKey.
func (ks *KeyStore) Lookup(apiKey string) (caller string, ok bool) {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	caller, ok = ks.keys[hashKey(apiKey)]
	return
}

// Len reports how many keys are registered.
func (ks *KeyStore) Len() int {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	return len(ks.keys)
}

func hashKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}
