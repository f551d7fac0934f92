package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/FelixdelasPozas/SuperDuck/pkg/catalog"
	"github.com/FelixdelasPozas/SuperDuck/pkg/superduck/types"
	"github.com/FelixdelasPozas/SuperDuck/pkg/transfer"
)

// ErrDeleteDisabled is returned by rm while disable_delete is set.
var ErrDeleteDisabled = errors.New("deleting is disabled; set disable_delete: false in the config file")

var mkdirCmd = &cobra.Command{
	Use:   "mkdir <path>",
	Short: "Create a directory in the bucket",
	Args:  cobra.ExactArgs(1),
	RunE:  runMkdir,
}

var rmCmd = &cobra.Command{
	Use:   "rm <path...>",
	Short: "Delete objects from the bucket",
	Long: `Delete the objects under the given catalog paths from the bucket and
remove them from the catalog. Directories holding an object that failed to
delete are kept.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRm,
}

var uploadCmd = &cobra.Command{
	Use:   "upload <local...>",
	Short: "Upload local files and directories",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runUpload,
}

var downloadCmd = &cobra.Command{
	Use:   "download <path...>",
	Short: "Download objects to a local directory",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDownload,
}

var (
	rmYes       bool
	rmFilter    string
	uploadTo    string
	downloadTo  string
	dlFullPaths bool
	dlFilter    string
)

func init() {
	rmCmd.Flags().BoolVarP(&rmYes, "yes", "y", false, "don't ask for confirmation")
	rmCmd.Flags().StringVarP(&rmFilter, "filter", "f", "", "only delete entries whose name contains this text")

	uploadCmd.Flags().StringVar(&uploadTo, "to", "", "catalog directory to upload into (default: root)")

	downloadCmd.Flags().StringVar(&downloadTo, "to", "", "local directory (default: download.path)")
	downloadCmd.Flags().BoolVar(&dlFullPaths, "full-paths", false, "recreate the key's directories locally")
	downloadCmd.Flags().StringVarP(&dlFilter, "filter", "f", "", "only download entries whose name contains this text")

	rootCmd.AddCommand(mkdirCmd, rmCmd, uploadCmd, downloadCmd)
}

// signalContext is cancelled on SIGINT or SIGTERM, which aborts the
// running operation.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// printProgress draws a single updating status line on stderr when it is a
// terminal.
func printProgress(p transfer.Progress) {
	if quiet || !term.IsTerminal(int(os.Stderr.Fd())) {
		return
	}
	fmt.Fprintf(os.Stderr, "\r\033[K%s %d/%d %3.0f%% %s", p.Kind, p.Done, p.Total, p.Fraction()*100, p.Path)
}

func reportResult(res transfer.Result, applied transfer.Applied) error {
	if !quiet && term.IsTerminal(int(os.Stderr.Fd())) {
		fmt.Fprint(os.Stderr, "\r\033[K")
	}
	printInfo("%s: %d succeeded (%s), %d failed", res.Request.Kind, len(res.Succeeded), types.FormatSize(res.Bytes()), len(res.Failed))

	failed := make([]string, 0, len(res.Failed))
	for p := range res.Failed {
		failed = append(failed, p)
	}
	sort.Strings(failed)
	for _, p := range failed {
		printError("%s: %v", p, res.Failed[p])
	}
	for _, k := range applied.Kept {
		printVerbose("kept %s: it still holds objects", k)
	}

	switch {
	case res.Aborted:
		return errors.New("operation aborted")
	case len(res.Failed) > 0:
		return fmt.Errorf("%d of %d items failed", len(res.Failed), len(res.Request.Items))
	}
	return nil
}

func runMkdir(cmd *cobra.Command, args []string) (err error) {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	app, err := newApp(ctx, appOptions{remote: true, lock: true})
	if err != nil {
		return err
	}
	defer closeApp(app, &err)

	target := strings.Trim(args[0], types.Delimiter)
	parent, name := path.Split(target)
	req, _, err := transfer.PrepareCreateDirectory(app.Model, parent, name)
	if err != nil {
		return err
	}
	res, applied, err := app.Run(ctx, req, printProgress)
	if err != nil {
		return err
	}
	return reportResult(res, applied)
}

// confirm asks a yes/no question on the terminal. Without a terminal the
// answer is no.
func confirm(prompt string) bool {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		printError("%s: stdin is not a terminal, pass --yes to confirm", prompt)
		return false
	}
	fmt.Fprintf(os.Stderr, "%s [y/N] ", prompt)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func runRm(cmd *cobra.Command, args []string) (err error) {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	app, err := newApp(ctx, appOptions{remote: true, lock: true})
	if err != nil {
		return err
	}
	defer closeApp(app, &err)

	if app.Config.DisableDelete {
		return ErrDeleteDisabled
	}

	c := app.Catalog()
	c.SetFilter(rmFilter)
	ids, err := resolvePaths(c, args)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if id == catalog.RootID {
			return catalog.ErrCannotDeleteRoot
		}
	}

	req := transfer.DeleteRequest(c, ids)
	if len(req.Items) == 0 {
		printInfo("Nothing to delete.")
		return nil
	}
	stats := c.Stats(ids...)
	if !rmYes && !confirm(fmt.Sprintf("Delete %d files and %d directories (%s)?", stats.Files, stats.Directories, types.FormatSize(stats.Size))) {
		printInfo("Cancelled.")
		return nil
	}

	res, applied, err := app.Run(ctx, req, printProgress)
	if err != nil && res.Request.ID == "" {
		return err
	}
	if err != nil {
		printError("updating catalog: %v", err)
	}
	return reportResult(res, applied)
}

func runUpload(cmd *cobra.Command, args []string) (err error) {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	app, err := newApp(ctx, appOptions{remote: true, lock: true})
	if err != nil {
		return err
	}
	defer closeApp(app, &err)

	dest := strings.Trim(uploadTo, types.Delimiter)
	if id, ok := app.Catalog().FindByPath(dest); ok {
		if n, _ := app.Catalog().Node(id); !n.IsDir() {
			return fmt.Errorf("%w: %s is a file", catalog.ErrInvalidParent, dest)
		}
	}

	req, err := transfer.UploadRequest(args, dest)
	if err != nil {
		return err
	}
	printVerbose("uploading %d items (%s) to %q", len(req.Items), types.FormatSize(req.TotalBytes()), dest)

	res, applied, err := app.Run(ctx, req, printProgress)
	if err != nil && res.Request.ID == "" {
		return err
	}
	if err != nil {
		printError("updating catalog: %v", err)
	}
	return reportResult(res, applied)
}

func runDownload(cmd *cobra.Command, args []string) (err error) {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	app, err := newApp(ctx, appOptions{remote: true})
	if err != nil {
		return err
	}
	defer closeApp(app, &err)

	dest := downloadTo
	if dest == "" {
		dest = app.Config.Download.Path
	}
	if dest, err = downloadDir(dest); err != nil {
		return err
	}
	fullPaths := app.Config.Download.FullPaths
	if cmd.Flags().Changed("full-paths") {
		fullPaths = dlFullPaths
	}

	c := app.Catalog()
	c.SetFilter(dlFilter)
	ids, err := selection(c, args)
	if err != nil {
		return err
	}
	req := transfer.DownloadRequest(c, ids, dest, fullPaths)

	res, applied, err := app.Run(ctx, req, printProgress)
	if err != nil {
		return err
	}
	return reportResult(res, applied)
}
