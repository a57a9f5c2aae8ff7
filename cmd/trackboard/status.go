package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/spf13/cobra"

	"github.com/trackboard/trackboard/internal/config"
	"github.com/trackboard/trackboard/internal/dashboard"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Inspect and edit persisted status flags",
}

var (
	statusScope    string
	statusCampaign string
	statusKey      string
	statusActive   bool
)

var statusListCmd = &cobra.Command{
	Use:   "list",
	Short: "List persisted flags for a scope",
	RunE:  runStatusList,
}

var statusSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set one flag",
	RunE:  runStatusSet,
}

var statusClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every flag under a scope",
	RunE:  runStatusClear,
}

func init() {
	for _, c := range []*cobra.Command{statusListCmd, statusSetCmd, statusClearCmd} {
		c.Flags().StringVarP(&configFile, "config", "c", "/etc/trackboard/config.yaml", "Path to configuration file")
		c.Flags().StringVar(&statusScope, "scope", "", "API key scope the flags belong to")
		c.MarkFlagRequired("scope")
	}
	statusSetCmd.Flags().StringVar(&statusCampaign, "campaign", "", "Campaign id")
	statusSetCmd.Flags().StringVar(&statusKey, "key", "", "Row key (sub1 or sub7)")
	statusSetCmd.Flags().BoolVar(&statusActive, "active", true, "Flag value")
	statusSetCmd.MarkFlagRequired("campaign")
	statusSetCmd.MarkFlagRequired("key")

	statusCmd.AddCommand(statusListCmd)
	statusCmd.AddCommand(statusSetCmd)
	statusCmd.AddCommand(statusClearCmd)
}

func runStatusList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	store, err := dashboard.NewStore(cfg, slog.Default())
	if err != nil {
		return err
	}
	defer closeStore(store)

	all, err := store.GetAll(context.Background(), statusScope)
	if err != nil {
		return err
	}
	if len(all) == 0 {
		fmt.Println("No flags persisted for this scope")
		return nil
	}

	campaigns := make([]string, 0, len(all))
	for id := range all {
		campaigns = append(campaigns, id)
	}
	sort.Strings(campaigns)

	for _, id := range campaigns {
		fmt.Printf("campaign %s:\n", id)
		keys := make([]string, 0, len(all[id]))
		for k := range all[id] {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			state := "active"
			if all[id][k] == 0 {
				state = "inactive"
			}
			fmt.Printf("  %s: %s\n", k, state)
		}
	}
	return nil
}

func runStatusSet(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	store, err := dashboard.NewStore(cfg, slog.Default())
	if err != nil {
		return err
	}
	defer closeStore(store)

	if err := store.SetOne(context.Background(), statusScope, statusCampaign, statusKey, statusActive); err != nil {
		return err
	}
	fmt.Printf("Set %s/%s to active=%v\n", statusCampaign, statusKey, statusActive)
	return nil
}

func runStatusClear(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	store, err := dashboard.NewStore(cfg, slog.Default())
	if err != nil {
		return err
	}
	defer closeStore(store)

	if err := store.DeleteScope(context.Background(), statusScope); err != nil {
		return err
	}
	fmt.Println("Scope cleared")
	return nil
}

func closeStore(store any) {
	if closer, ok := store.(io.Closer); ok {
		closer.Close()
	}
}
