package policy

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/flarebyte/ampscribe/internal/logging"
	"github.com/flarebyte/ampscribe/internal/policy"
	"github.com/flarebyte/ampscribe/internal/report"
	"github.com/flarebyte/ampscribe/internal/taxonomy"
)

const defaultPolicyPath = "ampscribe-policy.yaml"

// NewCmd creates the `ampscribe policy` command group.
func NewCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Review decisions for validation error slugs",
	}
	cmd.PersistentFlags().StringVar(&path, "path", defaultPolicyPath, "Policy file (.yaml)")

	get := &cobra.Command{
		Use:   "get SLUG",
		Short: "Print the status of a slug",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := policy.NewFileStore(path).Get(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), st)
			return err
		},
	}

	var code string
	set := &cobra.Command{
		Use:   "set SLUG STATUS",
		Short: "Accept, reject or reset a slug",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := taxonomy.ParseStatus(args[1])
			if err != nil {
				return err
			}
			store := policy.NewFileStore(path)
			if code != "" {
				err = store.Put(args[0], policy.Record{Status: st, Code: code})
			} else {
				err = store.Set(args[0], st)
			}
			if err != nil {
				return err
			}
			logging.FromContext(cmd.Context()).Info("policy updated",
				zap.String("slug", args[0]), zap.String("status", string(st)), zap.String("path", path))
			return nil
		},
	}
	set.Flags().StringVar(&code, "code", "", "Error code stored alongside the decision")

	var asJSON bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List stored decisions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := policy.NewFileStore(path).List()
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), report.Policies(records, report.ShouldColorize(cmd.OutOrStdout())))
			return err
		},
	}
	list.Flags().BoolVar(&asJSON, "json", false, "Print decisions as JSON")

	cmd.AddCommand(get, set, list)
	return cmd
}
