package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"igcrawler/pkg/auth"
	"igcrawler/pkg/config"
	"igcrawler/pkg/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage igcrawler configuration.

Configuration is merged from, highest priority first:
  - Command line flags
  - Environment variables (IGCRAWLER_*) and .env files
  - Configuration file
  - Default values`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with every default value",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration with secrets masked",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	printer := ui.NewPrinter(quiet)

	path := configFile
	if path == "" {
		path = ".igcrawler.yaml"
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file %s already exists", path)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}

	printer.Success("Configuration written to %s", path)
	printer.Hint("Session cookies are better kept out of this file: use 'igcrawler auth login' or IGCRAWLER_SESSION_ID.")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	masked := *cfg
	if masked.Instagram.SessionID != "" {
		masked.Instagram.SessionID = auth.Mask(masked.Instagram.SessionID)
	}
	if masked.Instagram.CSRFToken != "" {
		masked.Instagram.CSRFToken = auth.Mask(masked.Instagram.CSRFToken)
	}
	if masked.Archive.Postgres.DSN != "" {
		masked.Archive.Postgres.DSN = auth.Mask(masked.Archive.Postgres.DSN)
	}

	data, err := yaml.Marshal(&masked)
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if _, _, err := loadConfig(cmd); err != nil {
		return err
	}
	ui.NewPrinter(quiet).Success("Configuration is valid")
	return nil
}
