package stage

import (
	"context"

	"github.com/flarebyte/ampscribe/internal/config"
)

const validateConfigStage = "validate-config"

// ValidateConfig is the stage implementation for "validate-config".
func ValidateConfig(ctx context.Context, in Envelope, deps Deps) (Envelope, error) {
	if in.Meta == nil || in.Meta.ConfigPath == "" {
		return Envelope{}, ErrMissingConfigPath{}
	}
	cfg, err := config.Parse(in.Meta.ConfigPath)
	if err != nil {
		return Envelope{}, err
	}
	if err := validateConfigValues(cfg); err != nil {
		return Envelope{}, err
	}
	out := in
	applyConfigToMeta(&out, cfg)
	return out, nil
}

type ErrMissingConfigPath struct{}

func (ErrMissingConfigPath) Error() string { return "missing required meta.configPath" }

func init() { Register(validateConfigStage, ValidateConfig) }
