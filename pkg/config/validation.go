package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate checks the configuration via struct tags plus the rules
// tags cannot express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	if cfg.Server.NFSPort != 0 && cfg.Server.NFSPort == cfg.Server.PmapPort {
		return fmt.Errorf("server: nfs_port and pmap_port must differ")
	}

	switch cfg.Store.Type {
	case "local":
		if cfg.Store.Local["root"] == nil || cfg.Store.Local["root"] == "" {
			return fmt.Errorf("store.local: root is required")
		}
	case "badger":
		if cfg.Store.Badger["path"] == nil || cfg.Store.Badger["path"] == "" {
			return fmt.Errorf("store.badger: path is required")
		}
	case "s3":
		if cfg.Store.S3["bucket"] == nil || cfg.Store.S3["bucket"] == "" {
			return fmt.Errorf("store.s3: bucket is required")
		}
		if cfg.Store.S3["region"] == nil || cfg.Store.S3["region"] == "" {
			return fmt.Errorf("store.s3: region is required")
		}
	}

	return nil
}

// formatValidationError converts validator errors into a message that
// names the offending field.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
