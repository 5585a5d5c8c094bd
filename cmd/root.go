package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
	version  = "dev"
	commit   = "none"
	date     = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "askdb",
	Short: "AskDB — SQL query gateway with natural-language answers",
	Long: `AskDB is a read-only query gateway for PostgreSQL and MySQL databases.
It introspects tenant schemas, previews and executes validated SELECT
queries, and answers natural-language questions by generating SQL with a
text-completion model.`,
}

func Execute() {
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.askdb/askdb.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
}
