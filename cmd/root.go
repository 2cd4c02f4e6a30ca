package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"songplaydw/internal/ui"
)

var (
	cfgFile   string
	dialect   string
	logLevel  string
	logFormat string
	dryRun    bool

	rootCmd = &cobra.Command{
		Use:   "songplaydw",
		Short: "Load song play activity into a star-schema warehouse",
		Long: `songplaydw - bulk-load raw listening events and song metadata from S3 into
staging tables, transform them into a star schema (songplays, users, songs,
artists, times) and audit the row counts.

Run 'create-tables' once, then 'etl', then 'analytics' at any time.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command. SIGINT and SIGTERM cancel the running statement.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.ShowError(err)
		stop()
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./dwh.cfg, ./songplaydw.yaml or ~/.songplaydw/config.yaml)")
	flags.StringVar(&dialect, "dialect", "", "warehouse dialect: redshift, snowflake or postgres (overrides warehouse.dialect)")
	flags.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")
	flags.StringVar(&logFormat, "log-format", "console", "log format: console or json")
	flags.BoolVar(&dryRun, "dry-run", false, "print the statements instead of running them")
}
