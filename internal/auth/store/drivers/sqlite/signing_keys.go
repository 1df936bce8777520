package sqlite

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
	var (
		k                    domain.SigningKey
		createdAt, expiresAt int64
	)
	if err := s.Scan(&k.ID, &k.Kid, &k.Algorithm, &k.PrivateKeyEncrypted, &createdAt, &expiresAt); err != nil {
		return domain.SigningKey{}, mapNotFound(err)
	}
	k.CreatedAt = fromMillis(createdAt)
	k.ExpiresAt = fromMillis(expiresAt)
	return k, nil
}

func (r *signingKeysRepo) CreateSigningKey(ctx context.Context, key domain.SigningKey) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO signing_keys (id, kid, algorithm, private_key_encrypted, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		key.ID, key.Kid, key.Algorithm, key.PrivateKeyEncrypted, toMillis(key.CreatedAt), toMillis(key.ExpiresAt),
	)
	return mapUniqueViolation(err)
}

func (r *signingKeysRepo) ListSigningKeys(ctx context.Context, now time.Time) ([]domain.SigningKey, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kid, algorithm, private_key_encrypted, created_at, expires_at
		FROM signing_keys
		WHERE expires_at > ?
		ORDER BY created_at DESC, id DESC`,
		toMillis(now),
	)
	if err != nil {
		return nil, err
	}
	return dbx.CollectRows(rows, scanSigningKey)
}

func (r *signingKeysRepo) DeleteExpiredSigningKeys(ctx context.Context, now time.Time) (int64, error) {
	return dbx.RowsAffected(r.db.ExecContext(ctx, `DELETE FROM signing_keys WHERE expires_at <= ?`, toMillis(now)))
}
