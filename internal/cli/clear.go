package cli

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pinagent/internal/logger"
	"github.com/mesh-intelligence/pinagent/pkg/types"
)

func newClearCmd(f *rootFlags) *cobra.Command {
	var scope string
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove ledger records",
		Long: "Delete every record in the chosen scope. Cleared items become eligible\n" +
			"for publishing again. Scopes: all, pins, blog_pins, searched_boards.",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := types.ParseClearScope(scope)
			if err != nil {
				return userError("%w: %q", err, scope)
			}
			e, err := loadEnv(f)
			if err != nil {
				return err
			}
			defer e.log.Sync() //nolint:errcheck

			l, err := e.openLedger()
			if err != nil {
				return err
			}
			defer l.Close()

			removed, err := l.Clear(cmd.Context(), s)
			if err != nil {
				return sysError("clear ledger: %w", err)
			}
			e.log.Info("ledger cleared",
				logger.String("scope", string(s)),
				logger.Int64("removed", removed.Total()),
			)
			return printCounts(cmd, f.jsonMode, "Removed", removed)
		},
	}
	cmd.Flags().StringVar(&scope, "scope", string(types.ScopeAll), "records to clear: all, pins, blog_pins, searched_boards")
	return cmd
}
