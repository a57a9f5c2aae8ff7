package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trackboard/trackboard/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration commands",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	RunE:  runConfigValidate,
}

func init() {
	configValidateCmd.Flags().StringVarP(&configFile, "config", "c", "/etc/trackboard/config.yaml", "Path to configuration file")
	configCmd.AddCommand(configValidateCmd)
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	fmt.Println("Configuration is valid")
	fmt.Printf("  Listen address: %s\n", cfg.Server.ListenAddr)
	fmt.Printf("  Tracker base URL: %s\n", cfg.Tracker.BaseURL)
	fmt.Printf("  Tracker timezone: %s\n", cfg.Tracker.Timezone)
	fmt.Printf("  Storage backend: %s\n", cfg.Storage.Backend)
	if cfg.Storage.Backend == "remote" {
		fmt.Printf("  Remote store: %s (owner %s)\n", cfg.Storage.Remote.BaseURL, cfg.Storage.Remote.Owner)
	} else {
		fmt.Printf("  Local store path: %s\n", cfg.Storage.Local.Path)
	}
	fmt.Printf("  Session database: %s\n", cfg.Database.Path)
	fmt.Printf("  Metrics enabled: %v\n", cfg.Metrics.Enabled)

	return nil
}
