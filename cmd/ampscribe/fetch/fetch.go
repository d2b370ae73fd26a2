package fetch

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/flarebyte/ampscribe/internal/logging"
	"github.com/flarebyte/ampscribe/internal/taxonomy"
	"github.com/flarebyte/ampscribe/internal/validation"
)

const exitCodeBlocking = 2

type blockingError struct{ n int }

func (e blockingError) Error() string { return fmt.Sprintf("blocking errors: %d", e.n) }
func (e blockingError) ExitCode() int { return exitCodeBlocking }

// NewCmd creates the `ampscribe fetch` command.
func NewCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "fetch URL",
		Short: "Request a validation render of a live URL and print its errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := validation.NewClient(timeout, logging.FromContext(cmd.Context()))
			defer func() { _ = client.Close() }()
			results, err := client.ValidateURL(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if results == nil {
				results = []taxonomy.Result{}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetEscapeHTML(false)
			enc.SetIndent("", "  ")
			if err := enc.Encode(results); err != nil {
				return err
			}
			if n := taxonomy.BlockingCount(results); n > 0 {
				return blockingError{n: n}
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")
	return cmd
}
