package cache

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/flarebyte/ampscribe/internal/logging"
	"github.com/flarebyte/ampscribe/internal/respcache"
)

// NewCmd creates the `ampscribe cache` command group.
func NewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Maintain the persistent response cache",
	}
	var path string
	purge := &cobra.Command{
		Use:   "purge",
		Short: "Delete expired cache entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				return fmt.Errorf("missing required flag: --path")
			}
			backend, err := respcache.OpenSQLite(path)
			if err != nil {
				return err
			}
			defer func() { _ = backend.Close() }()
			n, err := backend.Purge(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			logging.FromContext(cmd.Context()).Info("cache purged", zap.String("path", path), zap.Int64("removed", n))
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired entries\n", n)
			return err
		},
	}
	purge.Flags().StringVar(&path, "path", "", "Cache database path")
	cmd.AddCommand(purge)
	return cmd
}
