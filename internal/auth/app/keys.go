package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/fastlink/internal/auth/store"
	"github.com/aussiebroadwan/fastlink/pkg/cryptox"
	"github.com/aussiebroadwan/fastlink/pkg/jwtx"
)

// InitAuthKeys creates the KeyManager that signs session tokens.
//
// Storage modes:
//   - "ephemeral": keys live only in memory. Every session ends when the
//     service restarts.
//   - "persistent": keys are stored encrypted in the database, so sessions
//     survive restarts. Retired keys keep verifying for the grace period.
func InitAuthKeys(ctx context.Context, cfg Config, db store.Store, logger *slog.Logger) (*jwtx.KeyManager, error) {
	if cfg.MasterKeyPath != "" {
		cryptox.SetMasterKeyPath(cfg.MasterKeyPath)
		logger.Info("master key path configured", "path", cfg.MasterKeyPath)
	}

	if cfg.KeyStorageMode == "persistent" {
		logger.Info("initializing persistent key manager",
			"algorithm", cfg.Algorithm,
			"num_keys", cfg.NumKeys,
			"grace_period", cfg.KeyGracePeriod,
		)

		keyManager, err := jwtx.NewPersistentKeyManager(ctx, jwtx.PersistentKeyManagerOptions{
			Store:       store.NewKeyStoreAdapter(db),
			Algorithm:   cfg.Algorithm,
			Issuer:      cfg.Issuer,
			NumKeys:     cfg.NumKeys,
			GracePeriod: cfg.KeyGracePeriod,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize persistent key manager: %w", err)
		}

		logger.Info("persistent signing keys loaded",
			"algorithm", keyManager.Algorithm(),
			"num_keys", keyManager.NumSigners(),
			"issuer", cfg.Issuer,
		)
		return keyManager, nil
	}

	logger.Info("initializing ephemeral key manager",
		"algorithm", cfg.Algorithm,
		"num_keys", cfg.NumKeys,
	)

	keyManager, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Algorithm: cfg.Algorithm,
		Issuer:    cfg.Issuer,
		NumKeys:   cfg.NumKeys,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ephemeral key manager: %w", err)
	}

	logger.Info("generated ephemeral signing keys",
		"algorithm", keyManager.Algorithm(),
		"num_keys", keyManager.NumSigners(),
		"issuer", cfg.Issuer,
	)
	logger.Warn("sessions issued before this start are no longer valid")

	return keyManager, nil
}
