// Package cli is the command line surface: the API server plus operator
// commands working directly against the configured store.
package cli

import (
	"github.com/spf13/cobra"

	"gitlab.com/testhub.net/internal/config"
	"gitlab.com/testhub.net/internal/core/ports/primary"
	"gitlab.com/testhub.net/internal/global/logger"
)

type Flags struct {
	Env   string
	Debug bool
}

// state is filled by the root pre-run hook before any command runs.
type state struct {
	flags  Flags
	cfg    *config.AppConfig
	logger primary.Logger
}

func NewRootCommand(version string) *cobra.Command {
	st := &state{}
	rootCmd := &cobra.Command{
		Use:           "testhub",
		Short:         "HTTP API test case management service",
		Long:          "Manage modules, ordered HTTP API test cases and suites, execute suites and inspect their reports.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnvFile(st.flags.Env); err != nil {
				return err
			}
			st.cfg = config.NewSystemConfig(st.flags.Env)
			if st.flags.Debug || st.cfg.DebugMode {
				logger.SetDebug(true)
			}
			st.logger = logger.Logger
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVarP(&st.flags.Env, "env", "e", "dev", "Environment; <env>.env is loaded when present")
	rootCmd.PersistentFlags().BoolVar(&st.flags.Debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		newServeCommand(st),
		newMigrateCommand(st),
		newImportCommand(st),
		newReportsCommand(st),
		newTokenCommand(st),
	)
	return rootCmd
}
