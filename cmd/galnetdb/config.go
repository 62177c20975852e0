package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pevans/galnetdb/config"
)

func (a *app) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the settings of the last build",
	}

	var settingsPath string
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the settings file with the password hidden",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := config.LoadRunConfig(settingsPath)
			if err != nil {
				return err
			}
			if run == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "No settings file at %s; run galnetdb build first.\n", settingsPath)
				return nil
			}

			data, err := json.MarshalIndent(run.Redacted(), "", "  ")
			if err != nil {
				return fmt.Errorf("failed to format settings: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	show.Flags().StringVar(&settingsPath, "settings", getEnv("GALNETDB_SETTINGS", config.DefaultSettingsPath),
		"Settings file to read (GALNETDB_SETTINGS)")

	cmd.AddCommand(show)
	return cmd
}
