// Package config loads CLI configuration with layered precedence:
// defaults, then an optional YAML file, then ADPULSE_ environment
// variables, then command-line flags.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const envPrefix = "ADPULSE_"

// DefaultFile is the config file consulted when --config is not given.
const DefaultFile = "adpulse.yaml"

// Config is the resolved CLI configuration.
type Config struct {
	// Driver selects the store backend: "sqlite" or "postgres".
	Driver string `koanf:"driver"`
	// DSN is the sqlite file path or postgres connection URL.
	DSN string `koanf:"dsn"`
	// UserID is recorded on audit entries.
	UserID string `koanf:"user_id"`
	// Verbose enables debug logging and the per-client results table.
	Verbose bool `koanf:"verbose"`
}

func defaults() map[string]any {
	return map[string]any{
		"driver":  "sqlite",
		"dsn":     ".adpulse/adpulse.db",
		"user_id": "system",
		"verbose": false,
	}
}

// Load resolves the configuration. path is the explicit --config value;
// when empty, DefaultFile is loaded if it exists. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	explicit := path != ""
	if path == "" {
		path = DefaultFile
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Driver != "sqlite" && cfg.Driver != "postgres" {
		return nil, fmt.Errorf("invalid driver %q: must be sqlite or postgres", cfg.Driver)
	}
	return &cfg, nil
}
