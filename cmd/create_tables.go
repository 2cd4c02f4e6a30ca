package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"songplaydw/internal/pipeline"
	"songplaydw/internal/ui"
)

var createTablesYes bool

var createTablesCmd = &cobra.Command{
	Use:   "create-tables",
	Short: "Drop and recreate the staging, fact and dimension tables",
	Long: `Drop the seven pipeline tables if they exist and create them again, empty.

Every statement commits on its own. If one fails the run stops and the tables
dropped or created before it stay that way; run the command again to recover.`,
	Args: cobra.NoArgs,
	RunE: runCreateTables,
}

func init() {
	rootCmd.AddCommand(createTablesCmd)

	createTablesCmd.Flags().BoolVarP(&createTablesYes, "yes", "y", false, "skip the confirmation prompt")
}

func runCreateTables(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if !dryRun && !createTablesYes {
		ok, err := ui.Confirm(fmt.Sprintf("Drop and recreate all tables on the %s warehouse?", s.config.Warehouse.Dialect), false)
		if err != nil {
			return err
		}
		if !ok {
			ui.ShowWarning("Cancelled, no tables were changed")
			return nil
		}
	}

	if err := s.connect(cmd.Context()); err != nil {
		return err
	}

	if err := pipeline.NewSchemaManager(s.catalog, s.warehouse(), s.options(cmd)).Reset(cmd.Context()); err != nil {
		return err
	}

	if !dryRun {
		ui.ShowSuccess("Created 7 tables")
	}
	return nil
}
