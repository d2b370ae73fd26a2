package version

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/flarebyte/ampscribe/internal/buildinfo"
)

// NewCmd creates the version command.
func NewCmd() *cobra.Command {
	var (
		flagShort bool
		flagJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the CLI version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeVersion(cmd.OutOrStdout(), cmd.ErrOrStderr(), flagShort, flagJSON)
		},
	}
	cmd.Flags().BoolVar(&flagShort, "short", false, "Print only the version string")
	cmd.Flags().BoolVar(&flagJSON, "json", false, "Print detailed JSON version info")
	return cmd
}

func writeVersion(stdout, stderr io.Writer, short, asJSON bool) error {
	if short || !asJSON {
		_, err := fmt.Fprintf(stdout, "ampscribe %s\n", buildinfo.Summary())
		return err
	}
	// Diagnostic object on stdout, human friendly line on stderr.
	_, _ = fmt.Fprintf(stderr, "ampscribe version: %s\n", buildinfo.Summary())
	out := struct {
		buildinfo.Info
		Timestamp string `json:"timestamp"`
	}{buildinfo.Current(), time.Now().UTC().Format(time.RFC3339Nano)}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
