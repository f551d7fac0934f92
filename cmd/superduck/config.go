package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/FelixdelasPozas/SuperDuck/pkg/superduck/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage superduck configuration settings.

Configuration is loaded from $XDG_CONFIG_HOME/superduck/config.yaml
(usually ~/.config/superduck/config.yaml) or the file given with --config.

Environment variables override the file using the SUPERDUCK_ prefix:
  SUPERDUCK_AWS_BUCKET=my-bucket
  SUPERDUCK_AWS_REGION=eu-west-1
  SUPERDUCK_DISABLE_DELETE=false`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration with secrets masked.`,
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Create a default configuration file if one doesn't exist.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd, configInitCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func configFilePath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.ConfigPath()
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if f := cfg.File(); f != "" {
		fmt.Printf("# Config file: %s\n", f)
	} else {
		fmt.Println("# Config file: (using defaults, no file found)")
	}
	if err := cfg.RemoteReady(); err != nil {
		fmt.Printf("# Remote: %v\n", err)
	}

	masked := cfg.Masked()
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(&masked); err != nil {
		return err
	}
	return enc.Close()
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFilePath()
	if _, err := os.Stat(path); err == nil {
		printInfo("Config file already exists: %s", path)
		return nil
	}
	if err := config.WriteDefault(path); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	printInfo("Created config file: %s", path)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	fmt.Println(configFilePath())
	return nil
}
