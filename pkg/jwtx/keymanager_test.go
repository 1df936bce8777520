package jwtx_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/fastlink/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestNewEphemeralKeyManager_AllAlgorithms(t *testing.T) {
	tests := []struct {
		name      string
		algorithm string
		numKeys   int
		want      int
	}{
		{name: "ES256 default keys", algorithm: jwtx.AlgorithmES256, numKeys: 0, want: 3},
		{name: "EdDSA single key", algorithm: jwtx.AlgorithmEdDSA, numKeys: 1, want: 1},
		{name: "EdDSA capped", algorithm: jwtx.AlgorithmEdDSA, numKeys: 50, want: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
				Algorithm: tt.algorithm,
				Issuer:    "test-issuer",
				NumKeys:   tt.numKeys,
			})
			require.NoError(t, err)
			require.Equal(t, tt.algorithm, km.Algorithm())
			require.True(t, km.IsReady())
			require.Equal(t, tt.want, km.NumSigners())
			require.Equal(t, tt.want, km.KeySet.Len())
		})
	}
}

func TestNewEphemeralKeyManager_Errors(t *testing.T) {
	_, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{Algorithm: jwtx.AlgorithmEdDSA})
	require.Error(t, err)

	_, err = jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{Algorithm: "RS256", Issuer: "x"})
	require.ErrorContains(t, err, "unsupported algorithm")
}

func TestKeyManager_SignAndVerify(t *testing.T) {
	for _, alg := range []string{jwtx.AlgorithmEdDSA, jwtx.AlgorithmES256} {
		t.Run(alg, func(t *testing.T) {
			km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{Algorithm: alg, Issuer: "fastlink"})
			require.NoError(t, err)

			claims := jwtx.NewClaims(jwtx.TokenTypeAccess, "user-1", "a@b.co", "fastlink", time.Hour, time.Now())
			token, err := km.Sign(claims)
			require.NoError(t, err)

			got, err := km.Verifier.Verify(token)
			require.NoError(t, err)
			require.Equal(t, "user-1", got.Subject)
			require.Equal(t, "a@b.co", got.Email)
			require.Equal(t, jwtx.TokenTypeAccess, got.Type)
			require.Equal(t, claims.ID, got.ID)
			require.NoError(t, got.RequireType(jwtx.TokenTypeAccess))
			require.ErrorIs(t, got.RequireType(jwtx.TokenTypeRefresh), jwtx.ErrWrongType)
		})
	}
}

func TestVerifier_Rejects(t *testing.T) {
	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{Algorithm: jwtx.AlgorithmEdDSA, Issuer: "fastlink", NumKeys: 1})
	require.NoError(t, err)
	other, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{Algorithm: jwtx.AlgorithmEdDSA, Issuer: "fastlink", NumKeys: 1})
	require.NoError(t, err)

	now := time.Now()
	sign := func(km *jwtx.KeyManager, c jwtx.Claims) string {
		tok, err := km.Sign(c)
		require.NoError(t, err)
		return tok
	}

	valid := sign(km, jwtx.NewClaims(jwtx.TokenTypeAccess, "u", "", "fastlink", time.Hour, now))

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{
			name:  "expired",
			token: sign(km, jwtx.NewClaims(jwtx.TokenTypeAccess, "u", "", "fastlink", time.Hour, now.Add(-2*time.Hour))),
			want:  jwtx.ErrExpired,
		},
		{
			name:  "wrong issuer",
			token: sign(km, jwtx.NewClaims(jwtx.TokenTypeAccess, "u", "", "someone-else", time.Hour, now)),
			want:  jwtx.ErrMalformed,
		},
		{
			name:  "unknown key",
			token: sign(other, jwtx.NewClaims(jwtx.TokenTypeAccess, "u", "", "fastlink", time.Hour, now)),
			want:  jwtx.ErrMalformed,
		},
		{
			name:  "tampered signature",
			token: valid[:len(valid)-4] + "AAAA",
			want:  jwtx.ErrMalformed,
		},
		{
			name:  "garbage",
			token: "not.a.jwt",
			want:  jwtx.ErrMalformed,
		},
		{
			name:  "unsigned",
			token: "eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0.eyJzdWIiOiJ1In0.",
			want:  jwtx.ErrMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := km.Verifier.Verify(tt.token)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestVerifier_Clock(t *testing.T) {
	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{Algorithm: jwtx.AlgorithmEdDSA, Issuer: "fastlink", NumKeys: 1})
	require.NoError(t, err)

	issued := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	token, err := km.Sign(jwtx.NewClaims(jwtx.TokenTypeRefresh, "u", "", "fastlink", time.Hour, issued))
	require.NoError(t, err)

	v := jwtx.NewVerifier(km.KeySet, jwtx.VerifyOptions{
		Issuer: "fastlink",
		Now:    func() time.Time { return issued.Add(30 * time.Minute) },
	})
	claims, err := v.Verify(token)
	require.NoError(t, err)
	require.Equal(t, jwtx.TokenTypeRefresh, claims.Type)

	late := jwtx.NewVerifier(km.KeySet, jwtx.VerifyOptions{
		Issuer: "fastlink",
		Now:    func() time.Time { return issued.Add(2 * time.Hour) },
	})
	_, err = late.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrExpired)
}

type memKeyStore struct {
	mu   sync.Mutex
	keys []jwtx.SigningKeyRecord
}

func (m *memKeyStore) ListSigningKeys(_ context.Context, now time.Time) ([]jwtx.SigningKeyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []jwtx.SigningKeyRecord
	for _, k := range m.keys {
		if k.ExpiresAt.After(now) {
			out = append(out, k)
		}
	}
	return out, nil
}

func (m *memKeyStore) CreateSigningKey(_ context.Context, key jwtx.SigningKeyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, key)
	return nil
}

func TestPersistentKeyManager_SurvivesRestart(t *testing.T) {
	ctx := context.Background()
	ks := &memKeyStore{}
	opts := jwtx.PersistentKeyManagerOptions{
		Store:     ks,
		Algorithm: jwtx.AlgorithmEdDSA,
		Issuer:    "fastlink",
		NumKeys:   2,
	}

	first, err := jwtx.NewPersistentKeyManager(ctx, opts)
	require.NoError(t, err)
	require.Len(t, ks.keys, 2)

	token, err := first.Sign(jwtx.NewClaims(jwtx.TokenTypeRefresh, "u", "", "fastlink", time.Hour, time.Now()))
	require.NoError(t, err)

	second, err := jwtx.NewPersistentKeyManager(ctx, opts)
	require.NoError(t, err)
	require.Len(t, ks.keys, 2, "existing keys are reused")

	claims, err := second.Verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "u", claims.Subject)
}

func TestPersistentKeyManager_RotatesAfterSigningPeriod(t *testing.T) {
	ctx := context.Background()
	ks := &memKeyStore{}
	start := time.Now()
	clock := start

	opts := jwtx.PersistentKeyManagerOptions{
		Store:         ks,
		Algorithm:     jwtx.AlgorithmEdDSA,
		Issuer:        "fastlink",
		NumKeys:       1,
		SigningPeriod: 24 * time.Hour,
		GracePeriod:   48 * time.Hour,
		Now:           func() time.Time { return clock },
	}

	first, err := jwtx.NewPersistentKeyManager(ctx, opts)
	require.NoError(t, err)
	oldKID := first.GetSigner().KID()

	clock = start.Add(36 * time.Hour)
	second, err := jwtx.NewPersistentKeyManager(ctx, opts)
	require.NoError(t, err)
	require.Len(t, ks.keys, 2)
	require.NotEqual(t, oldKID, second.GetSigner().KID())
	require.Equal(t, 2, second.KeySet.Len(), "old key still verifies")

	clock = start.Add(80 * time.Hour)
	third, err := jwtx.NewPersistentKeyManager(ctx, opts)
	require.NoError(t, err)
	_, _, err = third.KeySet.Get(oldKID)
	require.ErrorIs(t, err, jwtx.ErrUnknownKID)
}

func TestPersistentKeyManager_RequiresStore(t *testing.T) {
	_, err := jwtx.NewPersistentKeyManager(context.Background(), jwtx.PersistentKeyManagerOptions{Issuer: "x"})
	require.Error(t, err)
}

func TestVerifyType(t *testing.T) {
	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{Algorithm: jwtx.AlgorithmES256, Issuer: "fastlink", NumKeys: 1})
	require.NoError(t, err)

	now := time.Now()
	sign := func(typ jwtx.TokenType, issuedAt time.Time) string {
		tok, err := km.Sign(jwtx.NewClaims(typ, "u", "", "fastlink", time.Hour, issuedAt))
		require.NoError(t, err)
		return tok
	}

	tests := []struct {
		name  string
		token string
		want  jwtx.TokenType
		err   error
	}{
		{"access as access", sign(jwtx.TokenTypeAccess, now), jwtx.TokenTypeAccess, nil},
		{"refresh as refresh", sign(jwtx.TokenTypeRefresh, now), jwtx.TokenTypeRefresh, nil},
		{"refresh as access", sign(jwtx.TokenTypeRefresh, now), jwtx.TokenTypeAccess, jwtx.ErrWrongType},
		{"access as refresh", sign(jwtx.TokenTypeAccess, now), jwtx.TokenTypeRefresh, jwtx.ErrWrongType},
		{"expired access", sign(jwtx.TokenTypeAccess, now.Add(-2*time.Hour)), jwtx.TokenTypeAccess, jwtx.ErrExpired},
		{"garbage", "not.a.jwt", jwtx.TokenTypeAccess, jwtx.ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := jwtx.VerifyType(km.Verifier, tt.token, tt.want)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, "u", claims.Subject)
			require.Equal(t, tt.want, claims.Type)
		})
	}
}
