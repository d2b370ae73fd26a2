package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/flarebyte/ampscribe/internal/report"
)

// NewCmd creates the `ampscribe report` command.
func NewCmd() *cobra.Command {
	var noColor bool
	cmd := &cobra.Command{
		Use:   "report [FILE]",
		Short: "Summarize the JSON output of a run as tables",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				r = f
			}
			var run report.Run
			if err := json.NewDecoder(r).Decode(&run); err != nil {
				return fmt.Errorf("invalid run output: %w", err)
			}
			color := !noColor && report.ShouldColorize(cmd.OutOrStdout())
			_, err := fmt.Fprint(cmd.OutOrStdout(), run.Render(color))
			return err
		},
	}
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored status")
	return cmd
}
