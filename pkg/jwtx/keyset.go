package jwtx

import (
	"crypto"
	"sync"
)

type publicKey struct {
	alg string
	key crypto.PublicKey
}

// KeySet holds the public verification keys by kid. Safe for concurrent use.
type KeySet struct {
	mu   sync.RWMutex
	keys map[string]publicKey
}

// NewKeySet returns an empty KeySet.
func NewKeySet() *KeySet {
	return &KeySet{keys: make(map[string]publicKey)}
}

// AddSigner registers the public half of s.
func (k *KeySet) AddSigner(s Signer) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys[s.KID()] = publicKey{alg: s.Alg(), key: s.Public()}
}

// Get returns the algorithm and public key registered for kid.
func (k *KeySet) Get(kid string) (string, crypto.PublicKey, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	pk, ok := k.keys[kid]
	if !ok {
		return "", nil, ErrUnknownKID
	}
	return pk.alg, pk.key, nil
}

// Len returns the number of registered keys.
func (k *KeySet) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.keys)
}

// IsReady returns true if the KeySet has at least one key loaded.
func (k *KeySet) IsReady() bool {
	return k.Len() > 0
}
