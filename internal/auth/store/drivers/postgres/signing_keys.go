package postgres

import (
	"context"
	"time"

	"github.com/aussiebroadwan/fastlink/internal/auth/domain"
	"github.com/aussiebroadwan/fastlink/internal/auth/store/dbx"
)

type signingKeysRepo struct {
	db dbx.DBTX
}

func scanSigningKey(s dbx.Scanner) (domain.SigningKey, error) {
	var k domain.SigningKey
	if err := s.Scan(&k.ID, &k.Kid, &k.Algorithm, &k.PrivateKeyEncrypted, &k.CreatedAt, &k.ExpiresAt); err != nil {
		return domain.SigningKey{}, mapNotFound(err)
	}
	return k, nil
}

func (r *signingKeysRepo) CreateSigningKey(ctx context.Context, key domain.SigningKey) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO signing_keys (id, kid, algorithm, private_key_encrypted, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		key.ID, key.Kid, key.Algorithm, key.PrivateKeyEncrypted, key.CreatedAt, key.ExpiresAt,
	)
	return mapUniqueViolation(err)
}

func (r *signingKeysRepo) ListSigningKeys(ctx context.Context, now time.Time) ([]domain.SigningKey, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kid, algorithm, private_key_encrypted, created_at, expires_at
		FROM signing_keys
		WHERE expires_at > $1
		ORDER BY created_at DESC, id DESC`,
		now,
	)
	if err != nil {
		return nil, err
	}
	return dbx.CollectRows(rows, scanSigningKey)
}

func (r *signingKeysRepo) DeleteExpiredSigningKeys(ctx context.Context, now time.Time) (int64, error) {
	return dbx.RowsAffected(r.db.ExecContext(ctx, `DELETE FROM signing_keys WHERE expires_at <= $1`, now))
}
