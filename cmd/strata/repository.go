package main

import (
	"context"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/strata-vcs/strata/pkg/cert"
	"github.com/strata-vcs/strata/pkg/config"
	"github.com/strata-vcs/strata/pkg/logging"
	"github.com/strata-vcs/strata/pkg/strata"
)

// openRepository loads the configuration named by the root --config flag,
// resolves the active signing identity's keypair from its key directory,
// and opens the resulting strata.Repository.
func openRepository() (*strata.Repository, error) {
	cfg, err := config.Load(rootConfiguration.configPath)
	if err != nil {
		return nil, errors.Wrap(err, "unable to load configuration")
	}

	pub, priv, err := loadOrCreateIdentity(cfg.KeyDirectory, rootConfiguration.identity)
	if err != nil {
		return nil, errors.Wrap(err, "unable to resolve signing identity")
	}

	var policy cert.Policy
	if cfg.Trust == config.TrustModeKeyringOnly {
		policy = cert.DefaultPolicy
	}

	signer := func(keyID string, message []byte) []byte {
		return ed25519.Sign(priv, message)
	}

	logger := logging.RootLogger.Sublogger("strata")
	repo, err := strata.Open(cfg.DatabasePath, logger, rootConfiguration.identity, rootConfiguration.identity, signer, policy)
	if err != nil {
		return nil, err
	}

	if err := repo.RegisterPublicKey(context.Background(), rootConfiguration.identity, pub); err != nil {
		repo.Close()
		return nil, err
	}
	return repo, nil
}
