package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"songplaydw/internal/pipeline"
	"songplaydw/internal/ui"
	"songplaydw/pkg/errors"
)

var analyticsOutput string

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Count the rows of every pipeline table",
	Long: `Run a count(*) against each of the seven tables and print the results.
The command only reads and can be run at any time after 'create-tables'.`,
	Args: cobra.NoArgs,
	RunE: runAnalytics,
}

func init() {
	rootCmd.AddCommand(analyticsCmd)

	analyticsCmd.Flags().StringVarP(&analyticsOutput, "output", "o", "table", "output format: table or json")
}

func runAnalytics(cmd *cobra.Command, args []string) error {
	if analyticsOutput != "table" && analyticsOutput != "json" {
		return errors.ConfigError(fmt.Sprintf("Unsupported output format %q", analyticsOutput), "output").
			WithSuggestions("Use --output table or --output json")
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.connect(cmd.Context()); err != nil {
		return err
	}

	report, err := pipeline.NewAuditor(s.catalog, s.warehouse(), s.options(cmd)).Run(cmd.Context())
	if err != nil {
		return err
	}
	if dryRun {
		return nil
	}

	if analyticsOutput == "json" {
		return ui.WriteJSON(cmd.OutOrStdout(), report)
	}
	ui.RenderAudit(cmd.OutOrStdout(), report)
	return nil
}
