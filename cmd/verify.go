package cmd

import (
	"github.com/spf13/cobra"

	"songplaydw/internal/pipeline"
	"songplaydw/internal/ui"
)

var verifySourcesCmd = &cobra.Command{
	Use:   "verify-sources",
	Short: "Check that the configured S3 locations exist",
	Long: `Check each configured S3 location before a load: the event and song prefixes
must contain at least one object and the JSONPaths document must exist.
Nothing is written to S3 or the warehouse.`,
	Args: cobra.NoArgs,
	RunE: runVerifySources,
}

func init() {
	rootCmd.AddCommand(verifySourcesCmd)
}

func runVerifySources(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	store, err := s.objectStore(ctx)
	if err != nil {
		return err
	}

	checks, err := pipeline.NewVerifier(s.catalog, store, s.logger).Check(ctx)
	ui.RenderSources(cmd.OutOrStdout(), checks)
	if err != nil {
		return err
	}
	ui.ShowSuccess("All sources found")
	return nil
}
