package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/FelixdelasPozas/SuperDuck/pkg/superduck/config"
	"github.com/FelixdelasPozas/SuperDuck/pkg/superduck/history"
	"github.com/FelixdelasPozas/SuperDuck/pkg/superduck/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View operation history",
	Long: `View the history of uploads, downloads, deletions and directory
creations, including which items failed and why.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show details of a specific operation",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove old history entries",
	Long:  `Remove history entries older than the retention period (history.retention_days).`,
	Args:  cobra.NoArgs,
	RunE:  runHistoryPrune,
}

var (
	historyLimit int
	pruneDays    int
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of entries to show")
	historyPruneCmd.Flags().IntVar(&pruneDays, "days", 0, "retention in days (default: history.retention_days)")

	historyCmd.AddCommand(historyShowCmd, historyPruneCmd)
	rootCmd.AddCommand(historyCmd)
}

// openHistory opens the history store without the rest of the App.
func openHistory() (*history.Store, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if !cfg.History.Enabled {
		return nil, nil, errors.New("history is disabled (history.enabled: false)")
	}
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, _, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.List(historyLimit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		printInfo("No history entries found.")
		return nil
	}

	fmt.Printf("\n%-36s  %-19s  %-8s  %-8s  %6s  %10s\n", "ID", "TIME", "TYPE", "STATUS", "ITEMS", "SIZE")
	fmt.Println(strings.Repeat("-", 96))
	for _, r := range records {
		fmt.Printf("%-36s  %-19s  %-8s  %-8s  %6d  %10s\n",
			r.ID,
			r.Timestamp.Local().Format("2006-01-02 15:04:05"),
			r.Kind,
			r.Status(),
			r.Items,
			types.FormatSize(r.Bytes),
		)
	}
	fmt.Println(strings.Repeat("-", 96))
	printInfo("\nShowing %d entries. Use --limit to see more.", len(records))
	printInfo("Use 'superduck history show <id>' for details on a specific entry.")
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, _, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	r, err := store.Get(args[0])
	if err != nil {
		return err
	}

	fmt.Println("\nOperation Details")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("ID:          %s\n", r.ID)
	fmt.Printf("Timestamp:   %s\n", r.Timestamp.Local().Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("Operation:   %s\n", r.Kind)
	if r.Destination != "" {
		fmt.Printf("Destination: %s\n", r.Destination)
	}
	fmt.Printf("Status:      %s\n", r.Status())
	fmt.Printf("Items:       %d (%d succeeded)\n", r.Items, r.Succeeded)
	fmt.Printf("Transferred: %s\n", types.FormatSize(r.Bytes))
	fmt.Printf("Duration:    %s\n", r.Duration.Round(time.Millisecond))

	if len(r.Failed) > 0 {
		paths := make([]string, 0, len(r.Failed))
		for p := range r.Failed {
			paths = append(paths, p)
		}
		sort.Strings(paths)

		fmt.Println("\nFailed:")
		fmt.Println(strings.Repeat("-", 60))
		limit := min(len(paths), 50)
		for _, p := range paths[:limit] {
			fmt.Printf("%s: %s\n", p, r.Failed[p])
		}
		if len(paths) > limit {
			fmt.Printf("\n... and %d more\n", len(paths)-limit)
		}
	}
	return nil
}

func runHistoryPrune(cmd *cobra.Command, args []string) error {
	store, cfg, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	days := cfg.History.RetentionDays
	if pruneDays > 0 {
		days = pruneDays
	}
	if days <= 0 {
		days = config.DefaultRetentionDays
	}

	printInfo("Removing history entries older than %d days...", days)
	n, err := store.Prune(time.Duration(days) * 24 * time.Hour)
	if err != nil {
		return err
	}
	printInfo("Removed %d entries.", n)
	return nil
}
