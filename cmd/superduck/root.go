package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	dbFile   string
	logLevel string
	verbose  bool
	quiet    bool

	rootCmd = &cobra.Command{
		Use:   "superduck",
		Short: "Browse and manage an S3 bucket through a local catalog",
		Long: `SuperDuck keeps a local catalog of an S3 bucket so it can be browsed,
filtered and exported without listing the bucket every time.

Without a subcommand, superduck opens the interactive browser.

Examples:
  superduck                         # Browse the catalog
  superduck import                  # Rebuild the catalog from the bucket
  superduck ls photos --filter jpg  # List matching entries
  superduck export -o list.pdf      # Export the catalog
  superduck upload ./album --to photos
  superduck download photos/2024 --to ~/Downloads`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runBrowse,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/superduck/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbFile, "database", "", "catalog database file (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "minimal output")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
