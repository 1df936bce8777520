package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aussiebroadwan/fastlink/internal/auth/domain"
	"github.com/aussiebroadwan/fastlink/internal/auth/store"
	"github.com/aussiebroadwan/fastlink/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/fastlink/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newUser(email string) domain.User {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return domain.User{ID: idx.New().String(), Email: email, CreatedAt: now, UpdatedAt: now}
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	users := s.Users()

	u := newUser("ada@example.com")
	require.NoError(t, users.CreateUser(ctx, u))
	require.ErrorIs(t, users.CreateUser(ctx, newUser("ada@example.com")), store.ErrAlreadyExists)

	got, err := users.GetUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	require.Equal(t, u, got)

	got.Name = "Ada"
	got.IsVerified = true
	require.NoError(t, users.UpdateUser(ctx, got))

	byID, err := users.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "Ada", byID.Name)
	require.True(t, byID.IsVerified)

	list, err := users.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = users.GetUserByID(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
	require.ErrorIs(t, users.UpdateUser(ctx, newUser("ghost@example.com")), store.ErrNotFound)

	require.NoError(t, users.DeleteUser(ctx, u.ID))
	require.ErrorIs(t, users.DeleteUser(ctx, u.ID), store.ErrNotFound)
}

func TestUsers_RecordFailedLoginLocks(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	u := newUser("lock@example.com")
	require.NoError(t, s.Users().CreateUser(ctx, u))

	for i := 1; i <= 5; i++ {
		got, err := s.Users().RecordFailedLogin(ctx, u.ID, 5)
		require.NoError(t, err)
		require.Equal(t, i, got.LoginAttempts)
		require.Equal(t, i >= 5, got.IsLocked, "attempt %d", i)
	}
}

func TestOTPs_GuardedUpdates(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	otps := s.OTPs()
	now := time.Now().UTC().Truncate(time.Millisecond)

	otp := domain.OTP{
		ID:        idx.New().String(),
		Email:     "a@x.co",
		Code:      "123456",
		Type:      domain.OTPTypeLogin,
		ExpiresAt: now.Add(10 * time.Minute),
		CreatedAt: now,
	}
	require.NoError(t, otps.CreateOTP(ctx, otp))

	for want := 1; want <= 3; want++ {
		n, err := otps.IncrementOTPAttempts(ctx, otp.ID, 3)
		require.NoError(t, err)
		require.Equal(t, want, n)
	}
	_, err := otps.IncrementOTPAttempts(ctx, otp.ID, 3)
	require.ErrorIs(t, err, store.ErrConflict)

	require.NoError(t, otps.MarkOTPUsed(ctx, otp.ID))
	require.ErrorIs(t, otps.MarkOTPUsed(ctx, otp.ID), store.ErrConflict)

	_, err = otps.FindActiveOTP(ctx, otp.Email, otp.Type)
	require.ErrorIs(t, err, store.ErrNotFound, "used records are not active")
}

func TestOTPs_FindActiveNewestWins(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	otps := s.OTPs()
	now := time.Now().UTC().Truncate(time.Millisecond)

	first := domain.OTP{ID: idx.NewAt(now).String(), Email: "a@x.co", Code: "111111", Type: domain.OTPTypeRegister, ExpiresAt: now.Add(time.Minute), CreatedAt: now}
	second := domain.OTP{ID: idx.NewAt(now).String(), Email: "a@x.co", Code: "222222", Type: domain.OTPTypeRegister, ExpiresAt: now.Add(time.Minute), CreatedAt: now}
	other := domain.OTP{ID: idx.New().String(), Email: "a@x.co", Code: "333333", Type: domain.OTPTypeLogin, ExpiresAt: now.Add(time.Minute), CreatedAt: now}
	for _, o := range []domain.OTP{first, second, other} {
		require.NoError(t, otps.CreateOTP(ctx, o))
	}

	got, err := otps.FindActiveOTP(ctx, "a@x.co", domain.OTPTypeRegister)
	require.NoError(t, err)
	require.Equal(t, "222222", got.Code, "same timestamp falls back to id order")

	require.NoError(t, otps.DeleteUnusedOTPs(ctx, "a@x.co", domain.OTPTypeRegister))
	_, err = otps.FindActiveOTP(ctx, "a@x.co", domain.OTPTypeRegister)
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = otps.FindActiveOTP(ctx, "a@x.co", domain.OTPTypeLogin)
	require.NoError(t, err, "other types untouched")
}

func TestOTPs_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	now := time.Now().UTC()

	expired := domain.OTP{ID: idx.New().String(), Email: "a@x.co", Code: "111111", Type: domain.OTPTypeLogin, ExpiresAt: now.Add(-time.Minute), CreatedAt: now.Add(-11 * time.Minute)}
	live := domain.OTP{ID: idx.New().String(), Email: "b@x.co", Code: "222222", Type: domain.OTPTypeLogin, ExpiresAt: now.Add(time.Minute), CreatedAt: now}
	require.NoError(t, s.OTPs().CreateOTP(ctx, expired))
	require.NoError(t, s.OTPs().CreateOTP(ctx, live))

	n, err := s.OTPs().DeleteExpiredOTPs(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = s.OTPs().FindActiveOTP(ctx, "b@x.co", domain.OTPTypeLogin)
	require.NoError(t, err)
}

func TestSigningKeys(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	now := time.Now().UTC().Truncate(time.Millisecond)

	old := domain.SigningKey{ID: idx.New().String(), Kid: "k-old", Algorithm: "EdDSA", PrivateKeyEncrypted: []byte{1}, CreatedAt: now.Add(-time.Hour), ExpiresAt: now.Add(-time.Minute)}
	cur := domain.SigningKey{ID: idx.New().String(), Kid: "k-cur", Algorithm: "EdDSA", PrivateKeyEncrypted: []byte{2}, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, s.SigningKeys().CreateSigningKey(ctx, old))
	require.NoError(t, s.SigningKeys().CreateSigningKey(ctx, cur))
	require.ErrorIs(t, s.SigningKeys().CreateSigningKey(ctx, cur), store.ErrAlreadyExists)

	keys, err := s.SigningKeys().ListSigningKeys(ctx, now)
	require.NoError(t, err)
	require.Equal(t, []domain.SigningKey{cur}, keys)

	n, err := s.SigningKeys().DeleteExpiredSigningKeys(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestJobOrders(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	now := time.Now().UTC().Truncate(time.Millisecond)
	started := now.Add(-time.Hour)

	jo := domain.JobOrder{
		ID:          idx.New().String(),
		OrderNo:     "JO-0001",
		Status:      domain.JobOrderInProgress,
		DateStarted: &started,
		Customer:    domain.JobOrderCustomer{Company: "Acme", Attachments: []string{"a.pdf"}},
		Engineer:    domain.JobOrderEngineer{Remarks: "on site", SignApprove: true},
		CreatedBy:   "u1",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, s.JobOrders().CreateJobOrder(ctx, jo))

	got, err := s.JobOrders().GetJobOrder(ctx, jo.ID)
	require.NoError(t, err)
	require.Equal(t, jo, got)

	got.Status = domain.JobOrderCompleted
	got.DateFinish = &now
	require.NoError(t, s.JobOrders().UpdateJobOrder(ctx, got))

	list, err := s.JobOrders().ListJobOrders(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, domain.JobOrderCompleted, list[0].Status)

	require.NoError(t, s.JobOrders().DeleteJobOrder(ctx, jo.ID))
	_, err = s.JobOrders().GetJobOrder(ctx, jo.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.ErrorIs(t, s.JobOrders().DeleteJobOrder(ctx, jo.ID), store.ErrNotFound)
}

func TestWithTx(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.Users().CreateUser(ctx, newUser("rollback@example.com")))
		return boom
	})
	require.ErrorIs(t, err, boom)
	_, err = s.Users().GetUserByEmail(ctx, "rollback@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		_, err := tx.Tx(ctx)
		require.Error(t, err, "nested transactions are refused")
		return tx.Users().CreateUser(ctx, newUser("commit@example.com"))
	}))
	_, err = s.Users().GetUserByEmail(ctx, "commit@example.com")
	require.NoError(t, err)
}
