package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/FelixdelasPozas/SuperDuck/pkg/catalog"
	"github.com/FelixdelasPozas/SuperDuck/pkg/superduck/export"
	"github.com/FelixdelasPozas/SuperDuck/pkg/superduck/types"
)

var importCmd = &cobra.Command{
	Use:   "import [prefix]",
	Short: "Rebuild the catalog from the bucket",
	Long: `List every object of the configured bucket (optionally under a prefix)
and replace the local catalog with the result.

Keys that conflict with earlier ones, such as a key used both as a file and
as a directory prefix, are skipped and reported.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImport,
}

var lsCmd = &cobra.Command{
	Use:   "ls [path]",
	Short: "List catalog entries",
	Long: `List the catalog under path (the whole catalog by default) as a tree.

--filter applies the same case-insensitive substring filter as the browser;
--glob keeps only paths matching a pattern, where * stays within one path
component and ** crosses them.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLs,
}

var statsCmd = &cobra.Command{
	Use:   "stats [path...]",
	Short: "Show size and counts",
	RunE:  runStats,
}

var (
	importDryRun bool

	lsFilter string
	lsGlobs  []string
	lsFlat   bool

	statsFilter string
)

func init() {
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "list the bucket but don't replace the catalog")

	lsCmd.Flags().StringVarP(&lsFilter, "filter", "f", "", "only show entries whose name contains this text")
	lsCmd.Flags().StringSliceVarP(&lsGlobs, "glob", "g", nil, "only show paths matching these patterns")
	lsCmd.Flags().BoolVar(&lsFlat, "flat", false, "one path per line instead of a tree")

	statsCmd.Flags().StringVarP(&statsFilter, "filter", "f", "", "only count entries whose name contains this text")

	rootCmd.AddCommand(importCmd, lsCmd, statsCmd)
}

func runImport(cmd *cobra.Command, args []string) (err error) {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	app, err := newApp(ctx, appOptions{remote: true, lock: !importDryRun, empty: true})
	if err != nil {
		return err
	}
	defer closeApp(app, &err)

	prefix := ""
	if len(args) == 1 {
		prefix = args[0]
	}
	printInfo("Listing s3://%s/%s ...", app.Config.AWS.Bucket, prefix)

	entries, err := app.Executor.List(ctx, prefix)
	if err != nil {
		return err
	}
	cat, skipped := catalog.FromListing(entries)
	for _, s := range skipped {
		printError("skipped conflicting key %q", s.Path)
	}

	stats := cat.Stats()
	printInfo("%d objects: %d files, %d directories, %s",
		len(entries), stats.Files, stats.Directories, types.FormatSize(stats.Size))

	if importDryRun {
		return nil
	}
	if err := cat.SaveFile(app.Config.Database); err != nil {
		return fmt.Errorf("failed to save catalog: %w", err)
	}
	printInfo("Catalog written to %s", app.Config.Database)
	return nil
}

// resolvePaths maps catalog paths to node ids. No paths means the root.
func resolvePaths(c *catalog.Catalog, paths []string) ([]catalog.NodeID, error) {
	ids := make([]catalog.NodeID, 0, len(paths))
	for _, p := range paths {
		id, ok := c.FindByPath(p)
		if !ok {
			return nil, fmt.Errorf("%w: %s", catalog.ErrNotFound, p)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// selection resolves paths, dropping the root so a walk starts at its
// children.
func selection(c *catalog.Catalog, paths []string) ([]catalog.NodeID, error) {
	ids, err := resolvePaths(c, paths)
	if err != nil {
		return nil, err
	}
	kept := ids[:0]
	for _, id := range ids {
		if id == catalog.RootID {
			return nil, nil
		}
		kept = append(kept, id)
	}
	return kept, nil
}

func runLs(cmd *cobra.Command, args []string) (err error) {
	app, err := newApp(cmd.Context(), appOptions{})
	if err != nil {
		return err
	}
	defer closeApp(app, &err)

	c := app.Catalog()
	c.SetFilter(lsFilter)
	ids, err := selection(c, args)
	if err != nil {
		return err
	}

	rows, err := export.Filter(c.Collect(ids, true), export.Options{Include: lsGlobs})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		printInfo("No entries.")
		return nil
	}

	if !lsFlat {
		return (&export.TreeFormatter{}).Format(os.Stdout, rows)
	}
	for _, r := range rows {
		fmt.Printf("%12s  %s\n", r.HumanSize(), r.Path)
	}
	return nil
}

func runStats(cmd *cobra.Command, args []string) (err error) {
	app, err := newApp(cmd.Context(), appOptions{})
	if err != nil {
		return err
	}
	defer closeApp(app, &err)

	c := app.Catalog()
	c.SetFilter(statsFilter)
	ids, err := resolvePaths(c, args)
	if err != nil {
		return err
	}
	stats := c.Stats(ids...)

	label := "catalog"
	if len(args) > 0 {
		label = strings.Join(args, ", ")
	}
	fmt.Printf("%s\n", label)
	fmt.Println(strings.Repeat("-", 40))
	fmt.Printf("Size:        %s (%d bytes)\n", types.FormatSize(stats.Size), stats.Size)
	fmt.Printf("Files:       %d\n", stats.Files)
	fmt.Printf("Directories: %d\n", stats.Directories)
	if statsFilter != "" {
		fmt.Printf("Filter:      %q\n", statsFilter)
	}
	return nil
}
