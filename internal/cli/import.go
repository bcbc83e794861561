package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"gitlab.com/testhub.net/internal/fixtures"
)

func newImportCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Load modules, test cases and suites from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open fixtures: %w", err)
			}
			defer f.Close()

			doc, err := fixtures.Parse(f)
			if err != nil {
				return err
			}

			app, err := NewApp(cmd.Context(), st.cfg, st.logger)
			if err != nil {
				return err
			}
			defer app.Close()

			loader := fixtures.NewLoader(app.moduleService, app.testCaseService, app.suiteService, st.logger)
			summary, err := loader.Load(cmd.Context(), doc)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s imported %d modules, %d test cases, %d suites\n",
				color.GreenString("✓"), summary.Modules, summary.Cases, summary.Suites)
			return nil
		},
	}
}
