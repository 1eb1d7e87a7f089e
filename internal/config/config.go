// Package config implements TOML configuration loading and validation for
// studip-client. The config file lives inside the sync directory's .studip
// folder, next to the metadata cache.
package config

import (
	"fmt"

	"github.com/BebopxD/studip-client/internal/store"
)

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	Server ServerConfig `toml:"server"`
	User   UserConfig   `toml:"user"`
	Sync   SyncConfig   `toml:"sync"`
}

// ServerConfig holds the remote endpoints. The defaults point at the
// University of Passau installation, matching the original client.
type ServerConfig struct {
	StudIPBase string `toml:"studip_base"`
	SSOBase    string `toml:"sso_base"`
}

// UserConfig holds login persistence preferences. The password itself is
// prompted by the session layer and only stored when save_login says so.
type UserConfig struct {
	UserName  string `toml:"user_name"`
	SaveLogin string `toml:"save_login"` // "yes", "no", or "user name only"
}

// SyncConfig controls local sync behavior.
type SyncConfig struct {
	ParallelDownloads int    `toml:"parallel_downloads"`
	SkipCopyrighted   bool   `toml:"skip_copyrighted"`
	DefaultSync       string `toml:"default_sync"` // "full", "metadata", or "none"
	LogLevel          string `toml:"log_level"`    // "debug", "info", "warn", "error"
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			StudIPBase: "https://studip.uni-passau.de",
			SSOBase:    "https://sso.uni-passau.de",
		},
		Sync: SyncConfig{
			ParallelDownloads: 4,
			SkipCopyrighted:   false,
			DefaultSync:       "full",
			LogLevel:          "info",
		},
	}
}

// DefaultSyncMode maps the configured default_sync string to a SyncMode.
func (c *Config) DefaultSyncMode() store.SyncMode {
	switch c.Sync.DefaultSync {
	case "none":
		return store.SyncNone
	case "metadata":
		return store.SyncMetadata
	default:
		return store.SyncFull
	}
}

// Validate checks field values after parsing.
func Validate(cfg *Config) error {
	if cfg.Sync.ParallelDownloads < 1 {
		return fmt.Errorf("sync.parallel_downloads must be at least 1, got %d", cfg.Sync.ParallelDownloads)
	}

	switch cfg.Sync.DefaultSync {
	case "full", "metadata", "none":
	default:
		return fmt.Errorf("sync.default_sync must be \"full\", \"metadata\", or \"none\", got %q", cfg.Sync.DefaultSync)
	}

	switch cfg.Sync.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("sync.log_level must be one of debug, info, warn, error, got %q", cfg.Sync.LogLevel)
	}

	switch cfg.User.SaveLogin {
	case "", "yes", "no", "user name only":
	default:
		return fmt.Errorf("user.save_login must be \"yes\", \"no\", or \"user name only\", got %q", cfg.User.SaveLogin)
	}

	return nil
}
