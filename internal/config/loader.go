package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads configuration from the default path.
func Load() (*Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads configuration from a specific path, layering the file on
// top of DefaultConfig. A missing file is an error: unlike tuning options,
// the Slack tokens cannot be defaulted.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s (run `slack-agent onboard` to create one)", path)
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	backfill(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadLenient reads the config for local commands that do not need Slack
// credentials: a missing or incomplete file falls back to defaults instead
// of failing validation.
func LoadLenient() *Config {
	cfg := DefaultConfig()
	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		return cfg
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return DefaultConfig()
	}
	backfill(cfg)
	return cfg
}

// backfill restores zero values the file may have blanked out.
func backfill(cfg *Config) {
	if cfg.Claude.Command == "" {
		cfg.Claude.Command = "claude"
	}
	if cfg.Bot.TimeoutS == 0 {
		cfg.Bot.TimeoutS = 300
	}
	if cfg.Sessions.MaxEntries == 0 {
		cfg.Sessions.MaxEntries = 1024
	}
	if cfg.Renderer.UpdateIntervalMS == 0 {
		cfg.Renderer.UpdateIntervalMS = 1500
	}
	if cfg.Renderer.MaxUpdates == 0 {
		cfg.Renderer.MaxUpdates = 10
	}
	defaults := DefaultConfig()
	if cfg.Messages.Processing == "" {
		cfg.Messages.Processing = defaults.Messages.Processing
	}
	if cfg.Messages.Empty == "" {
		cfg.Messages.Empty = defaults.Messages.Empty
	}
	if cfg.Messages.GeneralError == "" {
		cfg.Messages.GeneralError = defaults.Messages.GeneralError
	}
	if cfg.Messages.EmptyResponse == "" {
		cfg.Messages.EmptyResponse = defaults.Messages.EmptyResponse
	}
	if cfg.Messages.LongResponse == "" {
		cfg.Messages.LongResponse = defaults.Messages.LongResponse
	}
}

// Save writes configuration to the default path.
func Save(cfg *Config) error {
	return SaveTo(cfg, ConfigPath())
}

// SaveTo writes configuration to a specific path.
func SaveTo(cfg *Config, path string) error {
	os.MkdirAll(filepath.Dir(path), 0o755)

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o600)
}
