package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/muurk/tbk/internal/config"
	"github.com/muurk/tbk/internal/version"
)

var forceInit bool

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing configuration file")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "tbk %s\n", version.Full())
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write a default configuration file with two example simulated
access points ("MyAP" with password "MyPass" and the open "OpenCafe").`,
	Example: `  # Create the default configuration
  tbk config init

  # Recreate it, discarding local edits
  tbk config init --force`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
		if err := config.CreateDefaultConfig(path, forceInit); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveConfigPath()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}
