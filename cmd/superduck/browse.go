package main

import (
	"context"
	"fmt"
	"os"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"

	"github.com/FelixdelasPozas/SuperDuck/cmd/superduck/tui"
	"github.com/FelixdelasPozas/SuperDuck/pkg/superduck/config"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Open the interactive browser (default command)",
	Long: `Open the interactive catalog browser.

The browser works offline when the bucket is not configured: browsing,
filtering and saving are available, remote actions are not. Edits to the
config file are picked up while it runs.`,
	Args: cobra.NoArgs,
	RunE: runBrowse,
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

// runBrowse opens the interactive browser on the catalog.
func runBrowse(cmd *cobra.Command, args []string) error {
	app, err := newApp(context.Background(), appOptions{
		remote:    true,
		offlineOK: true,
		lock:      true,
		tui:       true,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var reload chan tui.Settings
	if file := app.Config.File(); file != "" {
		w, err := config.NewWatcher(file)
		if err != nil {
			logger.Warn("config changes will not be picked up", "err", err)
		} else {
			defer w.Close()
			reload = make(chan tui.Settings, 1)
			go w.Run(ctx, func(cfg *config.Config) {
				s := settings(cfg)
				select {
				case reload <- s:
				case <-ctx.Done():
				}
			})
		}
	}

	runErr := tui.Run(tui.Options{
		Model:      app.Model,
		Dispatcher: app.Dispatcher,
		Offline:    app.Offline,
		Bucket:     app.Config.AWS.Bucket,
		Save:       app.Save,
		Record:     app.record,
		Settings:   settings(app.Config),
		Reload:     reload,
	})
	if err := app.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// settings picks the options the browser follows from cfg.
func settings(cfg *config.Config) tui.Settings {
	download, err := downloadDir(cfg.Download.Path)
	if err != nil {
		logger.Warn("no download directory", "err", err)
		download = ""
	}
	return tui.Settings{
		DisableDelete:     cfg.DisableDelete,
		DownloadDir:       download,
		DownloadFullPaths: cfg.Download.FullPaths,
	}
}

// downloadDir resolves the directory downloads land in, falling back to the
// user's download directory, and creates it.
func downloadDir(path string) (string, error) {
	if path == "" {
		path = xdg.UserDirs.Download
	}
	path, err := config.ExpandPath(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}
	return path, nil
}
