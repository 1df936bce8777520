package jwtx

import (
	"context"
	"fmt"
	"time"

	"github.com/aussiebroadwan/fastlink/pkg/cryptox"
	"github.com/aussiebroadwan/fastlink/pkg/idx"
)

// SigningKeyRecord is a signing key as persisted by a KeyStore. The private
// key is encrypted with the cryptox master key.
type SigningKeyRecord struct {
	ID                  string
	Kid                 string
	Algorithm           string
	PrivateKeyEncrypted []byte
	CreatedAt           time.Time
	ExpiresAt           time.Time
}

// KeyStore is the storage a persistent KeyManager needs.
type KeyStore interface {
	// ListSigningKeys returns every key whose ExpiresAt is after now.
	ListSigningKeys(ctx context.Context, now time.Time) ([]SigningKeyRecord, error)

	// CreateSigningKey stores a new key.
	CreateSigningKey(ctx context.Context, key SigningKeyRecord) error
}

// PersistentKeyManagerOptions configures a KeyManager backed by a KeyStore.
type PersistentKeyManagerOptions struct {
	Store     KeyStore
	Algorithm string
	Issuer    string
	NumKeys   int

	// SigningPeriod is how long a key signs new tokens. Defaults to 30 days.
	SigningPeriod time.Duration

	// GracePeriod is how long a key keeps verifying after it stops signing.
	// It must cover the longest token lifetime. Defaults to 30 days.
	GracePeriod time.Duration

	// Now overrides the clock.
	Now func() time.Time
}

// NewPersistentKeyManager loads keys from opts.Store so tokens survive
// restarts. Every unexpired key verifies; only keys still inside their
// signing period sign. Missing signing keys are generated and stored.
func NewPersistentKeyManager(ctx context.Context, opts PersistentKeyManagerOptions) (*KeyManager, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("jwtx: Store is required for persistent key manager")
	}
	if opts.Issuer == "" {
		return nil, fmt.Errorf("jwtx: Issuer is required")
	}
	if opts.SigningPeriod <= 0 {
		opts.SigningPeriod = 30 * 24 * time.Hour
	}
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = 30 * 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	numKeys := clampNumKeys(opts.NumKeys)
	now := opts.Now().UTC()

	records, err := opts.Store.ListSigningKeys(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("jwtx: failed to load keys: %w", err)
	}

	keyset := NewKeySet()
	var active []Signer
	for _, rec := range records {
		pemData, err := cryptox.DecryptPrivateKey(rec.PrivateKeyEncrypted)
		if err != nil {
			return nil, fmt.Errorf("jwtx: failed to decrypt key %s: %w", rec.Kid, err)
		}
		signer, err := NewSigner(rec.Algorithm, rec.Kid, pemData)
		if err != nil {
			return nil, fmt.Errorf("jwtx: failed to load key %s: %w", rec.Kid, err)
		}
		keyset.AddSigner(signer)

		if rec.Algorithm == opts.Algorithm && now.Before(rec.CreatedAt.Add(opts.SigningPeriod)) {
			active = append(active, signer)
		}
	}

	for len(active) < numKeys {
		kid, err := generateRandomKeyID()
		if err != nil {
			return nil, err
		}
		pemData, signer, err := generateKeyAndSigner(opts.Algorithm, kid)
		if err != nil {
			return nil, fmt.Errorf("jwtx: failed to generate new key: %w", err)
		}
		encrypted, err := cryptox.EncryptPrivateKey(pemData)
		if err != nil {
			return nil, fmt.Errorf("jwtx: failed to encrypt new key: %w", err)
		}

		rec := SigningKeyRecord{
			ID:                  idx.New().String(),
			Kid:                 kid,
			Algorithm:           opts.Algorithm,
			PrivateKeyEncrypted: encrypted,
			CreatedAt:           now,
			ExpiresAt:           now.Add(opts.SigningPeriod + opts.GracePeriod),
		}
		if err := opts.Store.CreateSigningKey(ctx, rec); err != nil {
			return nil, fmt.Errorf("jwtx: failed to store new key: %w", err)
		}

		active = append(active, signer)
		keyset.AddSigner(signer)
	}

	return &KeyManager{
		Verifier:  NewVerifier(keyset, VerifyOptions{Issuer: opts.Issuer}),
		KeySet:    keyset,
		algorithm: opts.Algorithm,
		signers:   active,
	}, nil
}
