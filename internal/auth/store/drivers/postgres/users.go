package postgres

import (
	"context"
	"time"

	"github.com/aussiebroadwan/fastlink/internal/auth/domain"
	"github.com/aussiebroadwan/fastlink/internal/auth/store"
	"github.com/aussiebroadwan/fastlink/internal/auth/store/dbx"
)

const userColumns = `id, email, name, password_hash, pin_hash, is_verified, is_locked,
	login_attempts, profile_completed, created_at, updated_at`

type usersRepo struct {
	db dbx.DBTX
}

func scanUser(s dbx.Scanner) (domain.User, error) {
	var u domain.User
	err := s.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.PINHash, &u.IsVerified, &u.IsLocked,
		&u.LoginAttempts, &u.ProfileCompleted, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (r *usersRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	return dbx.CollectRows(rows, scanUser)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.PINHash, u.IsVerified, u.IsLocked,
		u.LoginAttempts, u.ProfileCompleted, u.CreatedAt, u.UpdatedAt,
	)
	return mapUniqueViolation(err)
}

func (r *usersRepo) UpdateUser(ctx context.Context, u domain.User) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET
			email = $1, name = $2, password_hash = $3, pin_hash = $4, is_verified = $5, is_locked = $6,
			login_attempts = $7, profile_completed = $8, updated_at = $9
		WHERE id = $10`,
		u.Email, u.Name, u.PasswordHash, u.PINHash, u.IsVerified, u.IsLocked,
		u.LoginAttempts, u.ProfileCompleted, u.UpdatedAt, u.ID,
	)
	return requireOne(res, mapUniqueViolation(err), store.ErrNotFound)
}

func (r *usersRepo) RecordFailedLogin(ctx context.Context, id string, maxAttempts int) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `
		UPDATE users SET
			login_attempts = login_attempts + 1,
			is_locked = is_locked OR login_attempts + 1 >= $1,
			updated_at = $2
		WHERE id = $3
		RETURNING `+userColumns,
		maxAttempts, time.Now().UTC(), id,
	))
}

func (r *usersRepo) DeleteUser(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	return requireOne(res, err, store.ErrNotFound)
}
