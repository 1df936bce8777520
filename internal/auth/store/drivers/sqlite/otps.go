package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/fastlink/internal/auth/domain"
	"github.com/aussiebroadwan/fastlink/internal/auth/store"
	"github.com/aussiebroadwan/fastlink/internal/auth/store/dbx"
)

const otpColumns = `id, email, code, type, attempts, used, expires_at, created_at`

type otpsRepo struct {
	db dbx.DBTX
}

func scanOTP(s dbx.Scanner) (domain.OTP, error) {
	var (
		o                    domain.OTP
		expiresAt, createdAt int64
	)
	if err := s.Scan(&o.ID, &o.Email, &o.Code, &o.Type, &o.Attempts, &o.Used, &expiresAt, &createdAt); err != nil {
		return domain.OTP{}, mapNotFound(err)
	}
	o.ExpiresAt = fromMillis(expiresAt)
	o.CreatedAt = fromMillis(createdAt)
	return o, nil
}

func (r *otpsRepo) CreateOTP(ctx context.Context, o domain.OTP) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO otps (`+otpColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.Email, o.Code, o.Type, o.Attempts, o.Used, toMillis(o.ExpiresAt), toMillis(o.CreatedAt),
	)
	return mapUniqueViolation(err)
}

func (r *otpsRepo) FindActiveOTP(ctx context.Context, email string, typ domain.OTPType) (domain.OTP, error) {
	return scanOTP(r.db.QueryRowContext(ctx, `
		SELECT `+otpColumns+` FROM otps
		WHERE email = ? AND type = ? AND used = 0
		ORDER BY created_at DESC, id DESC
		LIMIT 1`,
		email, typ,
	))
}

func (r *otpsRepo) DeleteUnusedOTPs(ctx context.Context, email string, typ domain.OTPType) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM otps WHERE email = ? AND type = ? AND used = 0`, email, typ)
	return err
}

func (r *otpsRepo) IncrementOTPAttempts(ctx context.Context, id string, max int) (int, error) {
	var attempts int
	err := r.db.QueryRowContext(ctx, `
		UPDATE otps SET attempts = attempts + 1
		WHERE id = ? AND attempts < ?
		RETURNING attempts`,
		id, max,
	).Scan(&attempts)
	if err != nil {
		if mapNotFound(err) == store.ErrNotFound {
			return 0, store.ErrConflict
		}
		return 0, err
	}
	return attempts, nil
}

func (r *otpsRepo) MarkOTPUsed(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE otps SET used = 1 WHERE id = ? AND used = 0`, id)
	return requireOne(res, err, store.ErrConflict)
}

func (r *otpsRepo) DeleteOTP(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM otps WHERE id = ?`, id)
	return err
}

func (r *otpsRepo) DeleteExpiredOTPs(ctx context.Context, now time.Time) (int64, error) {
	return dbx.RowsAffected(r.db.ExecContext(ctx, `DELETE FROM otps WHERE expires_at <= ?`, toMillis(now)))
}
