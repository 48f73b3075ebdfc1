package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/konkers/prolink-nfs/pkg/store/memory"
)

// ============================================================================
// Defaults
// ============================================================================

func TestApplyDefaults(t *testing.T) {
	t.Run("ZeroConfigBootsMemoryExport", func(t *testing.T) {
		var cfg Config
		ApplyDefaults(&cfg)

		assert.Equal(t, "INFO", cfg.Logging.Level)
		assert.Equal(t, 111, cfg.Server.PmapPort)
		assert.Equal(t, 0, cfg.Server.NFSPort)
		assert.Equal(t, 64, cfg.Server.MaxInflight)
		assert.Equal(t, "/C/", cfg.Export.Name)
		assert.Equal(t, "memory", cfg.Store.Type)
		assert.NotNil(t, cfg.Store.Local)
		assert.False(t, cfg.Server.Metrics.Enabled)
		assert.Equal(t, 9090, cfg.Server.Metrics.Port)
	})

	t.Run("LevelIsUppercased", func(t *testing.T) {
		cfg := Config{Logging: LoggingConfig{Level: "debug"}}
		ApplyDefaults(&cfg)

		assert.Equal(t, "DEBUG", cfg.Logging.Level)
	})

	t.Run("ExplicitValuesSurvive", func(t *testing.T) {
		cfg := Config{
			Server: ServerConfig{PmapPort: 1111, NFSPort: 2049, MaxInflight: 8},
			Store:  StoreConfig{Type: "local"},
		}
		ApplyDefaults(&cfg)

		assert.Equal(t, 1111, cfg.Server.PmapPort)
		assert.Equal(t, 2049, cfg.Server.NFSPort)
		assert.Equal(t, 8, cfg.Server.MaxInflight)
		assert.Equal(t, "local", cfg.Store.Type)
	})

	t.Run("BurstDefaultsToTwiceRate", func(t *testing.T) {
		cfg := Config{Server: ServerConfig{RateLimit: 500}}
		ApplyDefaults(&cfg)

		assert.Equal(t, uint(1000), cfg.Server.RateBurst)
	})

	t.Run("NoRateNoBurst", func(t *testing.T) {
		var cfg Config
		ApplyDefaults(&cfg)

		assert.Equal(t, uint(0), cfg.Server.RateBurst)
	})
}

// ============================================================================
// Validation
// ============================================================================

func TestValidate(t *testing.T) {
	valid := func() *Config {
		var cfg Config
		ApplyDefaults(&cfg)
		return &cfg
	}

	t.Run("DefaultsAreValid", func(t *testing.T) {
		assert.NoError(t, Validate(valid()))
	})

	t.Run("BadLogLevel", func(t *testing.T) {
		cfg := valid()
		cfg.Logging.Level = "LOUD"

		assert.Error(t, Validate(cfg))
	})

	t.Run("ExportMustBeAbsolute", func(t *testing.T) {
		cfg := valid()
		cfg.Export.Name = "C/"

		assert.Error(t, Validate(cfg))
	})

	t.Run("PortCollision", func(t *testing.T) {
		cfg := valid()
		cfg.Server.PmapPort = 2049
		cfg.Server.NFSPort = 2049

		err := Validate(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must differ")
	})

	t.Run("UnknownStoreType", func(t *testing.T) {
		cfg := valid()
		cfg.Store.Type = "floppy"

		assert.Error(t, Validate(cfg))
	})

	t.Run("LocalRequiresRoot", func(t *testing.T) {
		cfg := valid()
		cfg.Store.Type = "local"

		err := Validate(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "root")
	})

	t.Run("BadgerRequiresPath", func(t *testing.T) {
		cfg := valid()
		cfg.Store.Type = "badger"

		assert.Error(t, Validate(cfg))
	})

	t.Run("S3RequiresBucketAndRegion", func(t *testing.T) {
		cfg := valid()
		cfg.Store.Type = "s3"
		assert.Error(t, Validate(cfg))

		cfg.Store.S3["bucket"] = "media"
		assert.Error(t, Validate(cfg))

		cfg.Store.S3["region"] = "us-east-1"
		assert.NoError(t, Validate(cfg))
	})
}

// ============================================================================
// Load
// ============================================================================

func TestLoad(t *testing.T) {
	t.Run("MissingFileUsesDefaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)

		assert.Equal(t, "memory", cfg.Store.Type)
		assert.Equal(t, "/C/", cfg.Export.Name)
	})

	t.Run("FileOverridesDefaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := `
logging:
  level: debug
server:
  pmap_port: 1111
  nfs_port: 2049
export:
  name: /D/
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "DEBUG", cfg.Logging.Level)
		assert.Equal(t, 1111, cfg.Server.PmapPort)
		assert.Equal(t, 2049, cfg.Server.NFSPort)
		assert.Equal(t, "/D/", cfg.Export.Name)
	})

	t.Run("InvalidFileRejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := `
store:
  type: local
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("WrittenDefaultReloads", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "config.yaml")
		require.NoError(t, WriteDefault(path))

		cfg, err := Load(path)
		require.NoError(t, err)

		var want Config
		ApplyDefaults(&want)
		assert.Equal(t, &want, cfg)
	})
}

// ============================================================================
// Store factory
// ============================================================================

func TestCreateStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Memory", func(t *testing.T) {
		st, err := CreateStore(ctx, &StoreConfig{Type: "memory"})
		require.NoError(t, err)
		assert.IsType(t, &memory.Store{}, st)
	})

	t.Run("LocalServesDirectory", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(root, "track.mp3"), []byte("beats"), 0o644))

		st, err := CreateStore(ctx, &StoreConfig{
			Type:  "local",
			Local: map[string]any{"root": root},
		})
		require.NoError(t, err)

		info, err := st.Stat(ctx, "/track.mp3")
		require.NoError(t, err)
		assert.Equal(t, uint64(5), info.Size)
	})

	t.Run("LocalMissingRoot", func(t *testing.T) {
		_, err := CreateStore(ctx, &StoreConfig{Type: "local", Local: map[string]any{}})
		assert.Error(t, err)
	})

	t.Run("UnknownType", func(t *testing.T) {
		_, err := CreateStore(ctx, &StoreConfig{Type: "tape"})
		assert.Error(t, err)
	})
}
