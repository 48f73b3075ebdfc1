// Package config loads and validates the server configuration from
// file, environment and defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the complete server configuration.
//
// Sources, in order of precedence:
//  1. Environment variables (PROLINK_NFS_*)
//  2. Configuration file (YAML)
//  3. Defaults
//
// The store section follows a type-plus-sections pattern: Type selects
// the backend and only the matching subsection is read.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Server contains transport settings
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Export names the directory the MOUNT program answers for
	Export ExportConfig `mapstructure:"export" yaml:"export"`

	// Store selects and configures the storage backend
	Store StoreConfig `mapstructure:"store" yaml:"store"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`
}

// ServerConfig contains transport settings.
type ServerConfig struct {
	// Bind is the local address to listen on; empty means all
	// interfaces
	Bind string `mapstructure:"bind" yaml:"bind"`

	// PmapPort is the portmapper's UDP port, conventionally 111
	PmapPort int `mapstructure:"pmap_port" yaml:"pmap_port" validate:"gte=0,lte=65535"`

	// NFSPort is the NFS/MOUNT UDP port; 0 binds dynamically and
	// clients discover the port through the portmapper
	NFSPort int `mapstructure:"nfs_port" yaml:"nfs_port" validate:"gte=0,lte=65535"`

	// MaxInflight bounds concurrently served datagrams
	MaxInflight int `mapstructure:"max_inflight" yaml:"max_inflight" validate:"gte=0"`

	// RateLimit caps sustained datagrams per second; 0 disables
	RateLimit uint `mapstructure:"rate_limit" yaml:"rate_limit"`

	// RateBurst is extra headroom above the sustained rate
	RateBurst uint `mapstructure:"rate_burst" yaml:"rate_burst"`

	// Metrics configures the Prometheus exposition endpoint
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// MetricsConfig controls the optional Prometheus HTTP endpoint.
type MetricsConfig struct {
	// Enabled turns metrics collection and the /metrics listener on
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port /metrics is served on
	Port int `mapstructure:"port" yaml:"port" validate:"gte=0,lte=65535"`
}

// ExportConfig names the exported directory.
type ExportConfig struct {
	// Name is the dirpath clients mount. Pioneer hardware asks for
	// the media partition path
	Name string `mapstructure:"name" yaml:"name" validate:"required,startswith=/"`
}

// StoreConfig selects the storage backend.
type StoreConfig struct {
	// Type picks the backend implementation
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=memory local badger s3"`

	// Memory has no options today; the section exists for symmetry
	Memory map[string]any `mapstructure:"memory" yaml:"memory"`

	// Local is read when Type = "local"
	Local map[string]any `mapstructure:"local" yaml:"local"`

	// Badger is read when Type = "badger"
	Badger map[string]any `mapstructure:"badger" yaml:"badger"`

	// S3 is read when Type = "s3"
	S3 map[string]any `mapstructure:"s3" yaml:"s3"`
}

// Load reads configuration from the given file path (or the default
// location when empty), layers environment variables on top, fills
// defaults and validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func setupViper(v *viper.Viper, configPath string) {
	// PROLINK_NFS_LOGGING_LEVEL=DEBUG and friends.
	v.SetEnvPrefix("PROLINK_NFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine; defaults carry the day.
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}
	return nil
}

func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "prolink-nfs")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "prolink-nfs")
}

// DefaultConfigPath returns where Load looks when no path is given.
func DefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
