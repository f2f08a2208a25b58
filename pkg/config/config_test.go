package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigurationValidates(t *testing.T) {
	c := Default("/tmp/example")
	require.NoError(t, c.Validate())
}

func TestValidateRejectsUnknownTrustMode(t *testing.T) {
	c := Default("/tmp/example")
	c.Trust = "bogus"
	require.Error(t, c.Validate())
}

func TestValidateRejectsEmptyDatabasePath(t *testing.T) {
	c := Default("/tmp/example")
	c.DatabasePath = ""
	require.Error(t, c.Validate())
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "strata.yml")

	c := Default(dir)
	c.DefaultBranch = "trunk"
	require.NoError(t, c.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, c.DatabasePath, loaded.DatabasePath)
	require.Equal(t, "trunk", loaded.DefaultBranch)
	require.Equal(t, TrustModeDefault, loaded.Trust)
}
