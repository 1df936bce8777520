package store

import (
	"context"
	"time"

	"github.com/aussiebroadwan/fastlink/internal/auth/domain"
	"github.com/aussiebroadwan/fastlink/pkg/jwtx"
)

// KeyStoreAdapter implements jwtx.KeyStore over a Store so jwtx never
// imports the domain package.
type KeyStoreAdapter struct {
	store Store
}

func NewKeyStoreAdapter(store Store) *KeyStoreAdapter {
	return &KeyStoreAdapter{store: store}
}

func (a *KeyStoreAdapter) ListSigningKeys(ctx context.Context, now time.Time) ([]jwtx.SigningKeyRecord, error) {
	keys, err := a.store.SigningKeys().ListSigningKeys(ctx, now)
	if err != nil {
		return nil, err
	}

	records := make([]jwtx.SigningKeyRecord, len(keys))
	for i, k := range keys {
		records[i] = jwtx.SigningKeyRecord{
			ID:                  k.ID,
			Kid:                 k.Kid,
			Algorithm:           k.Algorithm,
			PrivateKeyEncrypted: k.PrivateKeyEncrypted,
			CreatedAt:           k.CreatedAt,
			ExpiresAt:           k.ExpiresAt,
		}
	}
	return records, nil
}

func (a *KeyStoreAdapter) CreateSigningKey(ctx context.Context, rec jwtx.SigningKeyRecord) error {
	return a.store.SigningKeys().CreateSigningKey(ctx, domain.SigningKey{
		ID:                  rec.ID,
		Kid:                 rec.Kid,
		Algorithm:           rec.Algorithm,
		PrivateKeyEncrypted: rec.PrivateKeyEncrypted,
		CreatedAt:           rec.CreatedAt,
		ExpiresAt:           rec.ExpiresAt,
	})
}
