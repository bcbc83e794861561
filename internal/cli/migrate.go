package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"gitlab.com/testhub.net/internal/adapter/sqlstore"
	"gitlab.com/testhub.net/internal/config"
)

func newMigrateCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbCfg := st.cfg.DatabaseConfig
			if dbCfg.Driver == config.DriverMemory {
				return fmt.Errorf("the %s driver has no schema to migrate", config.DriverMemory)
			}

			store, err := sqlstore.Open(cmd.Context(), dbCfg, st.logger)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s schema is up to date (%s)\n", color.GreenString("✓"), dbCfg.Driver)
			return nil
		},
	}
}
