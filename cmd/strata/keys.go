package main

import (
	"crypto/ed25519"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// loadOrCreateIdentity loads the named identity's ed25519 seed from
// directory, generating and persisting a fresh one if none exists. Key
// storage format is purely a cmd/strata concern; the core library never
// reads or writes key material itself.
func loadOrCreateIdentity(directory, name string) (ed25519.PublicKey, ed25519.PrivateKey, error) {
	if err := os.MkdirAll(directory, 0700); err != nil {
		return nil, nil, errors.Wrap(err, "unable to create key directory")
	}
	path := filepath.Join(directory, name+".key")

	seed, err := os.ReadFile(path)
	if err == nil {
		if len(seed) != ed25519.SeedSize {
			return nil, nil, errors.Errorf("key file %s has wrong length", path)
		}
		priv := ed25519.NewKeyFromSeed(seed)
		return priv.Public().(ed25519.PublicKey), priv, nil
	}
	if !os.IsNotExist(err) {
		return nil, nil, errors.Wrap(err, "unable to read key file")
	}

	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, nil, errors.Wrap(err, "unable to generate identity")
	}
	if err := os.WriteFile(path, priv.Seed(), 0600); err != nil {
		return nil, nil, errors.Wrap(err, "unable to persist key file")
	}
	return pub, priv, nil
}
