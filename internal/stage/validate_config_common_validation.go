package stage

import (
	"fmt"

	"github.com/flarebyte/ampscribe/internal/config"
	"github.com/flarebyte/ampscribe/internal/override"
	"github.com/flarebyte/ampscribe/internal/sanitize"
	"github.com/flarebyte/ampscribe/internal/validation"
)

func validateConfigValues(cfg config.Config) error {
	if cfg.Workers.HasCount && cfg.Workers.Count < 1 {
		return fmt.Errorf("invalid workers: must be >= 1")
	}
	if cfg.Errors.HasMode && cfg.Errors.Mode != modeFailFast && cfg.Errors.Mode != modeKeepGoing {
		return fmt.Errorf("invalid errors.mode: %q (expected %s or %s)", cfg.Errors.Mode, modeFailFast, modeKeepGoing)
	}
	if cfg.Validation.HasMode {
		switch validation.Mode(cfg.Validation.Mode) {
		case validation.ModeCanonical, validation.ModePaired:
		default:
			return fmt.Errorf("invalid validation.mode: %q (expected %s or %s)", cfg.Validation.Mode, validation.ModeCanonical, validation.ModePaired)
		}
	}
	if cfg.Pipeline.HasContentMaxWidth && cfg.Pipeline.ContentMaxWidth < 0 {
		return fmt.Errorf("invalid pipeline.contentMaxWidth: must be >= 0")
	}
	for _, name := range cfg.Pipeline.Stages {
		if _, err := sanitize.Lookup(name); err != nil {
			return fmt.Errorf("invalid pipeline.stages: %v", err)
		}
	}
	if cfg.Cache.HasTTLHours && cfg.Cache.TTLHours < 1 {
		return fmt.Errorf("invalid cache.ttlHours: must be >= 1")
	}
	if cfg.Policy.Override.HasTimeout && cfg.Policy.Override.TimeoutMs < 1 {
		return fmt.Errorf("invalid policy.override.timeoutMs: must be >= 1")
	}
	if cfg.Policy.Override.HasInline {
		if _, err := override.Compile(override.Options{Script: cfg.Policy.Override.Inline}); err != nil {
			return fmt.Errorf("invalid policy.override.inline: %v", err)
		}
	}
	return nil
}
