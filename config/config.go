// Package config loads the labeler's construction-time configuration from
// a TOML file, environment variables, and CLI flags, in that precedence
// order (CLI flags win).
package config

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/teranos/labelmaker/errors"
)

// Config is the labeler's construction-time configuration.
type Config struct {
	Addr       string `toml:"addr"`
	DID        string `toml:"did"`
	SigningKey string `toml:"signing_key"`
	StorePath  string `toml:"store_path"`
}

func defaults() Config {
	return Config{
		Addr:      ":8443",
		StorePath: "labelmaker.db",
	}
}

// Load assembles the labeler's configuration from, in increasing order of
// precedence: built-in defaults, configPath (a labelmaker.toml file, read
// only if configPath is non-empty), LABELMAKER_-prefixed environment
// variables, and flagOverrides, whose non-empty fields win over everything
// else. It is the caller's job (cmd/labelmaker/commands) to populate
// flagOverrides from only the flags the user actually set.
func Load(configPath string, flagOverrides Config) (*Config, error) {
	cfg := defaults()

	if configPath != "" {
		if _, err := toml.DecodeFile(configPath, &cfg); err != nil {
			return nil, errors.Wrapf(err, "read config file %s", configPath)
		}
	}

	applyEnv(&cfg)
	applyOverrides(&cfg, flagOverrides)

	if cfg.DID == "" {
		return nil, errors.New("configuration missing required \"did\"")
	}
	if cfg.SigningKey == "" {
		return nil, errors.New("configuration missing required \"signing_key\"")
	}

	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv("LABELMAKER_ADDR"); ok {
		cfg.Addr = v
	}
	if v, ok := os.LookupEnv("LABELMAKER_DID"); ok {
		cfg.DID = v
	}
	if v, ok := os.LookupEnv("LABELMAKER_SIGNING_KEY"); ok {
		cfg.SigningKey = v
	}
	if v, ok := os.LookupEnv("LABELMAKER_STORE_PATH"); ok {
		cfg.StorePath = v
	}
}

func applyOverrides(cfg *Config, overrides Config) {
	if overrides.Addr != "" {
		cfg.Addr = overrides.Addr
	}
	if overrides.DID != "" {
		cfg.DID = overrides.DID
	}
	if overrides.SigningKey != "" {
		cfg.SigningKey = overrides.SigningKey
	}
	if overrides.StorePath != "" {
		cfg.StorePath = overrides.StorePath
	}
}
