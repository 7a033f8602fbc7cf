package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "adpulse.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Driver)
	assert.Equal(t, ".adpulse/adpulse.db", cfg.DSN)
	assert.Equal(t, "system", cfg.UserID)
	assert.False(t, cfg.Verbose)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, "driver: postgres\ndsn: postgres://localhost/adpulse\nverbose: true\n")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Driver)
	assert.Equal(t, "postgres://localhost/adpulse", cfg.DSN)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, "system", cfg.UserID) // default survives partial files
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "dsn: from-file.db\n")
	t.Setenv("ADPULSE_DSN", "from-env.db")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "from-env.db", cfg.DSN)
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	t.Setenv("ADPULSE_DSN", "from-env.db")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("dsn", "", "")
	require.NoError(t, flags.Parse([]string{"--dsn", "from-flag.db"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, "from-flag.db", cfg.DSN)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	path := writeConfig(t, "driver: oracle\n")
	_, err := Load(path, nil)
	assert.ErrorContains(t, err, "invalid driver")
}
