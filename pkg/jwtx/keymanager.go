package jwtx

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/aussiebroadwan/fastlink/pkg/cryptox"
)

const (
	defaultNumKeys = 3
	maxNumKeys     = 10
)

// KeyManager owns the signing keys of an instance and the verifier built
// over their public halves. Signing picks a key at random.
type KeyManager struct {
	Verifier  Verifier
	KeySet    *KeySet
	algorithm string

	signers []Signer
	mu      sync.RWMutex
}

// KeyManagerOptions configures an ephemeral KeyManager.
type KeyManagerOptions struct {
	// Algorithm is "ES256" or "EdDSA".
	Algorithm string

	// Issuer is stamped on issued tokens and enforced on verification.
	Issuer string

	// NumKeys defaults to 3, capped at 10.
	NumKeys int
}

// NewEphemeralKeyManager creates a KeyManager whose keys only live in
// memory. Every token becomes invalid when the process restarts.
func NewEphemeralKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	if opts.Issuer == "" {
		return nil, fmt.Errorf("jwtx: Issuer is required")
	}

	keyset := NewKeySet()
	n := clampNumKeys(opts.NumKeys)
	signers := make([]Signer, 0, n)

	for i := range n {
		kid, err := generateRandomKeyID()
		if err != nil {
			return nil, err
		}
		_, signer, err := generateKeyAndSigner(opts.Algorithm, kid)
		if err != nil {
			return nil, fmt.Errorf("jwtx: failed to generate signer %d: %w", i+1, err)
		}
		signers = append(signers, signer)
		keyset.AddSigner(signer)
	}

	return &KeyManager{
		Verifier:  NewVerifier(keyset, VerifyOptions{Issuer: opts.Issuer}),
		KeySet:    keyset,
		algorithm: opts.Algorithm,
		signers:   signers,
	}, nil
}

// Algorithm returns the algorithm used for new keys.
func (km *KeyManager) Algorithm() string {
	return km.algorithm
}

// IsReady returns true if the KeyManager can sign and verify.
func (km *KeyManager) IsReady() bool {
	return km.NumSigners() > 0 && km.KeySet.IsReady()
}

// GetSigner returns a randomly selected signing key, or nil if there is none.
func (km *KeyManager) GetSigner() Signer {
	km.mu.RLock()
	defer km.mu.RUnlock()

	switch len(km.signers) {
	case 0:
		return nil
	case 1:
		return km.signers[0]
	}
	return km.signers[rand.IntN(len(km.signers))]
}

// NumSigners returns the number of active signing keys.
func (km *KeyManager) NumSigners() int {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return len(km.signers)
}

// Sign signs claims with one of the active keys.
func (km *KeyManager) Sign(claims Claims) (string, error) {
	s := km.GetSigner()
	if s == nil {
		return "", fmt.Errorf("jwtx: no signing keys available")
	}
	return s.Sign(claims)
}

func clampNumKeys(n int) int {
	if n <= 0 {
		return defaultNumKeys
	}
	return min(n, maxNumKeys)
}

func generateKeyAndSigner(algorithm, kid string) ([]byte, Signer, error) {
	var (
		pemData []byte
		err     error
	)
	switch algorithm {
	case AlgorithmES256:
		pemData, err = cryptox.GenerateES256Key()
	case AlgorithmEdDSA:
		pemData, err = cryptox.GenerateEd25519Key()
	default:
		return nil, nil, fmt.Errorf("jwtx: unsupported algorithm %q (supported: ES256, EdDSA)", algorithm)
	}
	if err != nil {
		return nil, nil, err
	}

	signer, err := NewSigner(algorithm, kid, pemData)
	if err != nil {
		return nil, nil, err
	}
	return pemData, signer, nil
}

// generateRandomKeyID returns "fastlink-" followed by a 128-bit random token.
func generateRandomKeyID() (string, error) {
	token, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return "", fmt.Errorf("jwtx: failed to generate key ID: %w", err)
	}
	return "fastlink-" + token, nil
}
