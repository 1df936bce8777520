package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aussiebroadwan/fastlink/internal/auth/domain"
	"github.com/aussiebroadwan/fastlink/internal/auth/store"
	"github.com/aussiebroadwan/fastlink/pkg/cryptox"
)

type UserService struct {
	Store store.Store
	Now   func() time.Time
}

func (s *UserService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// GetUserByID fetches a user by id.
func (s *UserService) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrUserNotFound
	}
	return user, err
}

func (s *UserService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.Store.Users().ListUsers(ctx)
}

// CurrentSession checks that the caller's account is still usable: it
// exists, is not locked and is verified.
func (s *UserService) CurrentSession(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	if user.IsLocked {
		return domain.User{}, ErrAccountLocked
	}
	if !user.IsVerified {
		return domain.User{}, ErrNotVerified
	}
	return user, nil
}

// update loads the user, applies fn and writes it back with the profile
// flag recomputed.
func (s *UserService) update(ctx context.Context, userID string, fn func(u *domain.User) error) (domain.User, error) {
	var user domain.User
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		u, err := tx.Users().GetUserByID(ctx, userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if err := fn(&u); err != nil {
			return err
		}
		u.SyncProfileCompleted()
		u.UpdatedAt = s.now()
		if err := tx.Users().UpdateUser(ctx, u); err != nil {
			return err
		}
		user = u
		return nil
	})
	return user, err
}

// CompleteProfile sets name, password and PIN in one go.
func (s *UserService) CompleteProfile(ctx context.Context, userID, name, password, pin string) (domain.User, error) {
	name = strings.TrimSpace(name)
	if name == "" || password == "" || pin == "" {
		return domain.User{}, invalid("Name, password, and PIN are required")
	}
	if len(password) < MinPasswordLength {
		return domain.User{}, invalid("Password must be at least 6 characters long")
	}
	if !pinPattern.MatchString(pin) {
		return domain.User{}, invalid("PIN must be 4-6 digits")
	}

	passwordHash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, err
	}
	pinHash, err := cryptox.HashPassword(pin)
	if err != nil {
		return domain.User{}, err
	}

	return s.update(ctx, userID, func(u *domain.User) error {
		if !u.IsVerified {
			return ErrNotVerified
		}
		u.Name = name
		u.PasswordHash = passwordHash
		u.PINHash = pinHash
		return nil
	})
}

func (s *UserService) UpdateProfile(ctx context.Context, userID, name string) (domain.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.User{}, invalid("Name is required")
	}
	return s.update(ctx, userID, func(u *domain.User) error {
		u.Name = name
		return nil
	})
}

// secretChange describes the rules shared by password and PIN changes.
type secretChange struct {
	noun     string // "password" or "PIN"
	validate func(string) error
	hashOf   func(*domain.User) *string
}

var (
	passwordChange = secretChange{
		noun: "password",
		validate: func(v string) error {
			if len(v) < MinPasswordLength {
				return invalid("New password must be at least 6 characters long")
			}
			return nil
		},
		hashOf: func(u *domain.User) *string { return &u.PasswordHash },
	}
	pinChange = secretChange{
		noun: "PIN",
		validate: func(v string) error {
			if !pinPattern.MatchString(v) {
				return invalid("PIN must be 4-6 digits")
			}
			return nil
		},
		hashOf: func(u *domain.User) *string { return &u.PINHash },
	}
)

// UpdatePassword creates or changes the password. The current password is
// required once one is set. created reports whether none existed before.
func (s *UserService) UpdatePassword(ctx context.Context, userID, oldPassword, newPassword string) (created bool, err error) {
	return s.changeSecret(ctx, userID, oldPassword, newPassword, passwordChange)
}

// UpdatePIN follows the same rules as UpdatePassword.
func (s *UserService) UpdatePIN(ctx context.Context, userID, oldPIN, newPIN string) (created bool, err error) {
	return s.changeSecret(ctx, userID, oldPIN, newPIN, pinChange)
}

func (s *UserService) changeSecret(ctx context.Context, userID, oldValue, newValue string, c secretChange) (bool, error) {
	if newValue == "" {
		return false, invalid("New " + c.noun + " is required")
	}
	if err := c.validate(newValue); err != nil {
		return false, err
	}

	newHash, err := cryptox.HashPassword(newValue)
	if err != nil {
		return false, err
	}

	var created bool
	_, err = s.update(ctx, userID, func(u *domain.User) error {
		current := c.hashOf(u)
		created = *current == ""
		if !created {
			if oldValue == "" {
				return invalid("Current " + c.noun + " is required to update")
			}
			if err := matches(oldValue, *current); err != nil {
				if errors.Is(err, cryptox.ErrMismatch) {
					return invalid("Current " + c.noun + " is incorrect")
				}
				return err
			}
			if matches(newValue, *current) == nil {
				return invalid("New " + c.noun + " must be different from the current " + c.noun)
			}
		}
		*current = newHash
		return nil
	})
	return created, err
}

func matches(secret, hash string) error {
	return cryptox.VerifyPassword(secret, hash)
}

// UpdateUser applies an admin update. Only the name may change; nil means
// no update was provided.
func (s *UserService) UpdateUser(ctx context.Context, userID string, name *string) (domain.User, error) {
	if name == nil {
		return domain.User{}, invalid("No valid updates provided")
	}
	return s.update(ctx, userID, func(u *domain.User) error {
		u.Name = strings.TrimSpace(*name)
		return nil
	})
}

func (s *UserService) DeleteUser(ctx context.Context, userID string) error {
	err := s.Store.Users().DeleteUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}
