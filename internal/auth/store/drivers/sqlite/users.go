package sqlite

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
	var (
		u                    domain.User
		createdAt, updatedAt int64
	)
	err := s.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.PINHash, &u.IsVerified, &u.IsLocked,
		&u.LoginAttempts, &u.ProfileCompleted, &createdAt, &updatedAt)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.PINHash, u.IsVerified, u.IsLocked,
		u.LoginAttempts, u.ProfileCompleted, toMillis(u.CreatedAt), toMillis(u.UpdatedAt),
	)
	return mapUniqueViolation(err)
}

func (r *usersRepo) UpdateUser(ctx context.Context, u domain.User) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET
			email = ?, name = ?, password_hash = ?, pin_hash = ?, is_verified = ?, is_locked = ?,
			login_attempts = ?, profile_completed = ?, updated_at = ?
		WHERE id = ?`,
		u.Email, u.Name, u.PasswordHash, u.PINHash, u.IsVerified, u.IsLocked,
		u.LoginAttempts, u.ProfileCompleted, toMillis(u.UpdatedAt), u.ID,
	)
	return requireOne(res, mapUniqueViolation(err), store.ErrNotFound)
}

func (r *usersRepo) RecordFailedLogin(ctx context.Context, id string, maxAttempts int) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `
		UPDATE users SET
			login_attempts = login_attempts + 1,
			is_locked = CASE WHEN login_attempts + 1 >= ? THEN 1 ELSE is_locked END,
			updated_at = ?
		WHERE id = ?
		RETURNING `+userColumns,
		maxAttempts, toMillis(time.Now()), id,
	))
}

func (r *usersRepo) DeleteUser(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	return requireOne(res, err, store.ErrNotFound)
}
