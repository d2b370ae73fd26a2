package root

import (
	"github.com/spf13/cobra"

	"github.com/flarebyte/ampscribe/cmd/ampscribe/cache"
	"github.com/flarebyte/ampscribe/cmd/ampscribe/fetch"
	"github.com/flarebyte/ampscribe/cmd/ampscribe/policy"
	"github.com/flarebyte/ampscribe/cmd/ampscribe/report"
	"github.com/flarebyte/ampscribe/cmd/ampscribe/run"
	"github.com/flarebyte/ampscribe/cmd/ampscribe/version"
	"github.com/flarebyte/ampscribe/internal/logging"
)

// NewRootCmd creates the root command for ampscribe.
func NewRootCmd() *cobra.Command {
	var (
		logLevel  string
		logFormat string
		verbose   bool
	)
	cmd := &cobra.Command{
		Use:   "ampscribe",
		Short: "Sanitize rendered pages into valid AMP and trace invalid markup back to the code that produced it",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Show help when no subcommand is provided.
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.New(logging.Options{Level: logLevel, Format: logFormat, Verbose: verbose})
			if err != nil {
				return err
			}
			cmd.SetContext(logging.WithLogger(cmd.Context(), logger))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logging.FromContext(cmd.Context()).Sync()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (json or console)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	// Subcommands
	cmd.AddCommand(version.NewCmd())
	cmd.AddCommand(run.NewCmd())
	cmd.AddCommand(fetch.NewCmd())
	cmd.AddCommand(policy.NewCmd())
	cmd.AddCommand(cache.NewCmd())
	cmd.AddCommand(report.NewCmd())

	return cmd
}

// Execute runs the root command with provided args.
func Execute(args []string) error {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	return cmd.Execute()
}
