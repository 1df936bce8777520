package postgres

import (
	"context"
	"errors"
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
	var o domain.OTP
	if err := s.Scan(&o.ID, &o.Email, &o.Code, &o.Type, &o.Attempts, &o.Used, &o.ExpiresAt, &o.CreatedAt); err != nil {
		return domain.OTP{}, mapNotFound(err)
	}
	return o, nil
}

func (r *otpsRepo) CreateOTP(ctx context.Context, o domain.OTP) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO otps (`+otpColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		o.ID, o.Email, o.Code, string(o.Type), o.Attempts, o.Used, o.ExpiresAt, o.CreatedAt,
	)
	return mapUniqueViolation(err)
}

func (r *otpsRepo) FindActiveOTP(ctx context.Context, email string, typ domain.OTPType) (domain.OTP, error) {
	return scanOTP(r.db.QueryRowContext(ctx, `
		SELECT `+otpColumns+` FROM otps
		WHERE email = $1 AND type = $2 AND used = FALSE
		ORDER BY created_at DESC, id DESC
		LIMIT 1`,
		email, string(typ),
	))
}

func (r *otpsRepo) DeleteUnusedOTPs(ctx context.Context, email string, typ domain.OTPType) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM otps WHERE email = $1 AND type = $2 AND used = FALSE`, email, string(typ))
	return err
}

func (r *otpsRepo) IncrementOTPAttempts(ctx context.Context, id string, max int) (int, error) {
	var attempts int
	err := r.db.QueryRowContext(ctx, `
		UPDATE otps SET attempts = attempts + 1
		WHERE id = $1 AND attempts < $2
		RETURNING attempts`,
		id, max,
	).Scan(&attempts)
	if errors.Is(mapNotFound(err), store.ErrNotFound) {
		return 0, store.ErrConflict
	}
	return attempts, err
}

func (r *otpsRepo) MarkOTPUsed(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE otps SET used = TRUE WHERE id = $1 AND used = FALSE`, id)
	return requireOne(res, err, store.ErrConflict)
}

func (r *otpsRepo) DeleteOTP(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM otps WHERE id = $1`, id)
	return err
}

func (r *otpsRepo) DeleteExpiredOTPs(ctx context.Context, now time.Time) (int64, error) {
	return dbx.RowsAffected(r.db.ExecContext(ctx, `DELETE FROM otps WHERE expires_at <= $1`, now))
}
