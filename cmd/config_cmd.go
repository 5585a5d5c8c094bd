package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/askdb/askdb/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = config.ExpandHome(config.DefaultPath)
		}

		cfg := &config.Config{Version: config.CurrentVersion}
		cfg.ApplyDefaults()
		if err := cfg.Save(path); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Wrote default config to %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current config (secrets masked)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		fmt.Println("Current configuration:")
		fmt.Println()
		fmt.Printf("  Server:\n")
		fmt.Printf("    Port:             %d\n", cfg.Server.Port)
		fmt.Printf("    Auth:             %s\n", enabled(cfg.Server.AuthSecret != ""))
		fmt.Printf("    Rate limit:       %.1f req/s (burst %d)\n", cfg.Server.RateLimit.RequestsPerSecond, cfg.Server.RateLimit.Burst)
		fmt.Println()
		fmt.Printf("  Credentials:\n")
		fmt.Printf("    Provider:         %s\n", cfg.Credentials.Provider)
		fmt.Println()
		fmt.Printf("  Database:\n")
		fmt.Printf("    Max conns:        %d\n", cfg.Database.MaxConns)
		fmt.Printf("    Connect timeout:  %ds\n", cfg.Database.ConnectTimeoutSeconds)
		fmt.Printf("    Idle timeout:     %ds\n", cfg.Database.IdleTimeoutSeconds)
		fmt.Printf("    Stmt timeout:     %ds\n", cfg.Database.StatementTimeoutSeconds)
		fmt.Println()
		fmt.Printf("  Generation:\n")
		fmt.Printf("    Endpoint:         %s\n", cfg.Generation.Endpoint)
		fmt.Printf("    Model:            %s\n", cfg.Generation.Model)
		fmt.Printf("    Max tokens:       %d\n", cfg.Generation.MaxTokens)
		fmt.Println()
		fmt.Printf("  Telemetry:\n")
		fmt.Printf("    Endpoint:         %s\n", valueOr(cfg.Telemetry.Endpoint, "(disabled)"))

		return nil
	},
}

func enabled(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
