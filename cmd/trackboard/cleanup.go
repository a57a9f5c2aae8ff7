package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/trackboard/trackboard/internal/config"
	"github.com/trackboard/trackboard/internal/creds"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Clean up expired sessions",
	RunE:  runCleanup,
}

var cleanupDryRun bool

func init() {
	cleanupCmd.Flags().BoolVar(&cleanupDryRun, "dry-run", false, "Show what would be deleted without actually deleting")
	cleanupCmd.Flags().StringVarP(&configFile, "config", "c", "/etc/trackboard/config.yaml", "Path to configuration file")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	database, err := creds.New(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		return err
	}

	var count int
	err = database.QueryRow(`SELECT COUNT(*) FROM sessions WHERE expires_at < ?`, time.Now()).Scan(&count)
	if err != nil {
		return err
	}

	fmt.Printf("Expired sessions: %d\n", count)

	if cleanupDryRun {
		fmt.Println("Dry run mode - no data will be deleted")
		return nil
	}

	if count > 0 {
		repo := creds.NewRepository(database.DB)
		deleted, err := repo.DeleteExpired()
		if err != nil {
			return fmt.Errorf("failed to cleanup sessions: %w", err)
		}
		fmt.Printf("  Deleted: %d\n", deleted)
	}

	fmt.Println("Cleanup completed")
	return nil
}
