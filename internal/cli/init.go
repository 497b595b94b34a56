package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pinagent/internal/config"
	"github.com/mesh-intelligence/pinagent/internal/paths"
)

func newInitCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create default configuration and the ledger",
		Long: "Write config.yml and boards.yml into the config directory when missing,\n" +
			"then create the ledger. Existing files and records are kept.",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := paths.ResolveConfigDir(f.configDir)
			if err != nil {
				return sysError("resolve config directory: %w", err)
			}
			written, err := config.WriteDefaults(dir)
			if err != nil {
				return sysError("write defaults: %w", err)
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
			if err := l.Close(); err != nil {
				return sysError("close ledger: %w", err)
			}

			out := cmd.OutOrStdout()
			for _, p := range written {
				fmt.Fprintf(out, "wrote %s\n", p)
			}
			fmt.Fprintf(out, "pinagent initialized (config: %s, ledger: %s)\n", e.dirs.Config, e.cfg.Ledger.Backend)
			return nil
		},
	}
}
