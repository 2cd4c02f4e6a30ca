package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"songplaydw/internal/config"
	"songplaydw/internal/ui"
)

var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Manage the warehouse password in the OS keyring",
	Long: `Store or remove the warehouse password in the OS keyring. The entry is keyed
by cluster.db_user and cluster.host, and is read whenever cluster.db_password
is empty.`,
}

var credentialsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Prompt for the warehouse password and store it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		account := config.KeyringAccount(cfg.Cluster)
		password, err := ui.Password(fmt.Sprintf("Password for %s", account))
		if err != nil {
			return err
		}
		if err := config.StorePassword(cfg.Cluster, password); err != nil {
			return err
		}
		ui.ShowSuccess(fmt.Sprintf("Stored password for %s", account))
		return nil
	},
}

var credentialsDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the stored warehouse password",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := config.DeletePassword(cfg.Cluster); err != nil {
			return err
		}
		ui.ShowSuccess(fmt.Sprintf("Removed password for %s", config.KeyringAccount(cfg.Cluster)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(credentialsCmd)
	credentialsCmd.AddCommand(credentialsSetCmd)
	credentialsCmd.AddCommand(credentialsDeleteCmd)
}
