// Package config defines strata's on-disk configuration format: where the
// object store database and signing keys live, and the default trust
// policy applied to certs read back out of it. The core itself never reads
// environment variables directly; cmd/strata is the only place that
// translates flags or the environment into a Configuration.
package config

import (
	"github.com/pkg/errors"

	"github.com/strata-vcs/strata/pkg/encoding"
)

// TrustMode names one of the built-in trust policies a Configuration can
// select without requiring a caller to supply a cert.Policy callback.
type TrustMode string

const (
	// TrustModeDefault trusts every signature-correct cert whose signer key
	// is known (cert.DefaultPolicy); a cert from an unknown signer is
	// reported as unknown trust and is not counted.
	TrustModeDefault TrustMode = "default"
	// TrustModeKeyringOnly trusts a signature-correct cert only if its
	// signer is present in the local keyring, the same check Check
	// already performs via its key lookup - this mode exists so a config
	// file can be explicit about wanting no looser a policy than that.
	TrustModeKeyringOnly TrustMode = "keyring-only"
)

// Configuration is strata's persisted settings: where its object store
// lives, where signing keys are kept, and how liberally to trust certs
// read back from that store.
type Configuration struct {
	// DatabasePath is the path to the sqlite database backing the object
	// store.
	DatabasePath string `yaml:"databasePath"`
	// KeyDirectory is the directory an embedder should use to persist
	// keyring identities. The core never reads or writes this directory
	// itself; it is metadata for the embedder's own key-loading logic.
	KeyDirectory string `yaml:"keyDirectory"`
	// DefaultBranch names the repository's default branch. Validate
	// requires it to be non-empty; cmd/strata's commit and merge commands
	// do not read it and take their branch from the --branch flag, which
	// defaults to "main".
	DefaultBranch string `yaml:"defaultBranch"`
	// Trust selects the built-in trust policy applied when checking
	// certs. An empty value is equivalent to TrustModeDefault.
	Trust TrustMode `yaml:"trust"`
}

// Default returns a Configuration with reasonable defaults for a
// freshly-initialized repository rooted at directory.
func Default(directory string) *Configuration {
	return &Configuration{
		DatabasePath:  directory + "/strata.db",
		KeyDirectory:  directory + "/keys",
		DefaultBranch: "main",
		Trust:         TrustModeDefault,
	}
}

// Validate checks that the configuration is well-formed enough to act on.
func (c *Configuration) Validate() error {
	if c.DatabasePath == "" {
		return errors.New("database path must be specified")
	}
	if c.DefaultBranch == "" {
		return errors.New("default branch must be specified")
	}
	switch c.Trust {
	case "", TrustModeDefault, TrustModeKeyringOnly:
	default:
		return errors.Errorf("unknown trust mode: %q", c.Trust)
	}
	return nil
}

// Load reads a Configuration from a YAML file at path.
func Load(path string) (*Configuration, error) {
	config := &Configuration{}
	if err := encoding.LoadAndUnmarshalYAML(path, config); err != nil {
		return nil, errors.Wrap(err, "unable to load configuration")
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return config, nil
}

// Save writes the configuration to path as YAML.
func (c *Configuration) Save(path string) error {
	if err := c.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	return encoding.MarshalAndSaveYAML(path, c)
}
