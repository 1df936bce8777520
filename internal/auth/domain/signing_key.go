package domain

import "time"

// SigningKey is a JWT signing key stored encrypted at rest.
type SigningKey struct {
	ID                  string // ULID
	Kid                 string // e.g. "fastlink-abc123"
	Algorithm           string // ES256 or EdDSA
	PrivateKeyEncrypted []byte // AES-256-GCM sealed PEM
	CreatedAt           time.Time
	ExpiresAt           time.Time // no longer verifies after this
}

// IsExpired returns true if the key has passed its expiration time.
func (k SigningKey) IsExpired(now time.Time) bool {
	return !now.Before(k.ExpiresAt)
}
