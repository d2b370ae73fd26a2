package run

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/flarebyte/ampscribe/internal/config"
	"github.com/flarebyte/ampscribe/internal/logging"
	"github.com/flarebyte/ampscribe/internal/stage"
)

// NewCmd creates the `ampscribe run` command.
func NewCmd() *cobra.Command {
	var (
		cfgPath  string
		progress bool
	)
	cmd := &cobra.Command{
		Use:           "run",
		Short:         "Sanitize or validate the documents selected by a config",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfgPath == "" {
				return fmt.Errorf("missing required flag: --config")
			}
			cfg, err := config.Parse(cfgPath)
			if err != nil {
				return err
			}
			logger, err := configuredLogger(cmd, cfg.Logging)
			if err != nil {
				return err
			}
			var progressOut io.Writer
			if progress {
				progressOut = cmd.ErrOrStderr()
			}
			logger.Info("run started", zap.String("config", cfgPath), zap.String("action", cfg.Action))
			env, err := executePipeline(cmd.Context(), cfgPath, stage.Deps{Logger: logger}, progressOut)
			if err != nil {
				return err
			}
			logger.Info("run finished",
				zap.Int("documents", len(env.Records)),
				zap.Int("errors", len(env.Errors)),
				zap.Int("blocking", env.Meta.Blocking))
			return evaluateRunExit(env)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Path to config file (.cue)")
	cmd.Flags().BoolVar(&progress, "progress", false, "Report stage progress on stderr")
	return cmd
}

// configuredLogger applies the config logging section unless the logging
// flags were given explicitly.
func configuredLogger(cmd *cobra.Command, l config.Logging) (*zap.Logger, error) {
	logger := logging.FromContext(cmd.Context())
	if l.Level == "" && l.Format == "" {
		return logger, nil
	}
	if cmd.Flags().Changed("log-level") || cmd.Flags().Changed("log-format") || cmd.Flags().Changed("verbose") {
		return logger, nil
	}
	return logging.New(logging.Options{Level: l.Level, Format: l.Format})
}
