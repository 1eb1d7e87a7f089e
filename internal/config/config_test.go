package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BebopxD/studip-client/internal/store"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "studip.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	t.Run("full config", func(t *testing.T) {
		path := writeConfig(t, `
[server]
studip_base = "https://studip.example.edu"
sso_base = "https://sso.example.edu"

[user]
user_name = "jdoe"
save_login = "user name only"

[sync]
parallel_downloads = 8
skip_copyrighted = true
default_sync = "metadata"
log_level = "debug"
`)

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "https://studip.example.edu", cfg.Server.StudIPBase)
		assert.Equal(t, "jdoe", cfg.User.UserName)
		assert.Equal(t, 8, cfg.Sync.ParallelDownloads)
		assert.True(t, cfg.Sync.SkipCopyrighted)
		assert.Equal(t, store.SyncMetadata, cfg.DefaultSyncMode())
	})

	t.Run("partial config keeps defaults", func(t *testing.T) {
		path := writeConfig(t, `
[sync]
parallel_downloads = 2
`)

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 2, cfg.Sync.ParallelDownloads)
		assert.Equal(t, "https://studip.uni-passau.de", cfg.Server.StudIPBase)
		assert.Equal(t, "full", cfg.Sync.DefaultSync)
		assert.Equal(t, "info", cfg.Sync.LogLevel)
	})

	t.Run("unknown keys are rejected", func(t *testing.T) {
		path := writeConfig(t, `
[sync]
paralel_downloads = 2
`)

		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown keys")
		assert.Contains(t, err.Error(), "paralel_downloads")
	})

	t.Run("malformed TOML", func(t *testing.T) {
		path := writeConfig(t, `[sync`)

		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
		assert.Error(t, err)
	})
}

func TestLoadOrDefault(t *testing.T) {
	t.Run("missing file yields defaults", func(t *testing.T) {
		cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.toml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("existing file is loaded", func(t *testing.T) {
		path := writeConfig(t, `
[sync]
log_level = "warn"
`)

		cfg, err := LoadOrDefault(path)
		require.NoError(t, err)
		assert.Equal(t, "warn", cfg.Sync.LogLevel)
	})
}

func TestValidate(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		assert.NoError(t, Validate(DefaultConfig()))
	})

	t.Run("parallel downloads must be positive", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Sync.ParallelDownloads = 0
		assert.Error(t, Validate(cfg))
	})

	t.Run("default sync must be known", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Sync.DefaultSync = "everything"
		assert.Error(t, Validate(cfg))
	})

	t.Run("log level must be known", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Sync.LogLevel = "trace"
		assert.Error(t, Validate(cfg))
	})

	t.Run("save login must be known", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.User.SaveLogin = "maybe"
		assert.Error(t, Validate(cfg))
	})
}

func TestDefaultSyncMode(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, store.SyncFull, cfg.DefaultSyncMode())

	cfg.Sync.DefaultSync = "none"
	assert.Equal(t, store.SyncNone, cfg.DefaultSyncMode())

	cfg.Sync.DefaultSync = "metadata"
	assert.Equal(t, store.SyncMetadata, cfg.DefaultSyncMode())
}
