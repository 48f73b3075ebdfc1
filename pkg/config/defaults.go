package config

import "strings"

// ApplyDefaults fills unset fields with working values. The zero
// config boots a memory-backed server exporting /C/, which is what the
// hardware expects to find.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyExportDefaults(&cfg.Export)
	applyStoreDefaults(&cfg.Store)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.PmapPort == 0 {
		cfg.PmapPort = 111
	}
	if cfg.MaxInflight == 0 {
		cfg.MaxInflight = 64
	}
	if cfg.RateLimit != 0 && cfg.RateBurst == 0 {
		cfg.RateBurst = cfg.RateLimit * 2
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}
}

func applyExportDefaults(cfg *ExportConfig) {
	if cfg.Name == "" {
		cfg.Name = "/C/"
	}
}

func applyStoreDefaults(cfg *StoreConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}
	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.Local == nil {
		cfg.Local = make(map[string]any)
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}
	if cfg.S3 == nil {
		cfg.S3 = make(map[string]any)
	}
}
