package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"songplaydw/internal/config"
	"songplaydw/internal/ui"
)

var (
	configInitPath   string
	configInitFormat string
	configInitForce  bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the pipeline configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a template configuration file",
	Long: `Write a configuration template with the classic dwh.cfg sections
(CLUSTER, IAM_ROLE, S3, WAREHOUSE). The file is created with 0600 permissions.

Leave DB_PASSWORD empty and run 'songplaydw credentials set' to keep the
password in the OS keyring instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configInitPath
		if path == "" {
			path = "dwh.cfg"
			if configInitFormat == "yaml" || configInitFormat == "yml" {
				path = "songplaydw.yaml"
			}
		}

		if err := config.WriteTemplate(path, configInitFormat, configInitForce); err != nil {
			return err
		}
		ui.ShowSuccess(fmt.Sprintf("Wrote %s", path))
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with the password redacted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		out, err := config.Render(cfg)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	configInitCmd.Flags().StringVar(&configInitPath, "path", "", "file to write (default dwh.cfg, or songplaydw.yaml for yaml)")
	configInitCmd.Flags().StringVar(&configInitFormat, "format", "ini", "template format: ini or yaml")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")
}
