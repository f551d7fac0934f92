package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/FelixdelasPozas/SuperDuck/pkg/catalog"
	"github.com/FelixdelasPozas/SuperDuck/pkg/catalog/view"
	"github.com/FelixdelasPozas/SuperDuck/pkg/superduck/config"
	"github.com/FelixdelasPozas/SuperDuck/pkg/superduck/history"
	"github.com/FelixdelasPozas/SuperDuck/pkg/superduck/instance"
	"github.com/FelixdelasPozas/SuperDuck/pkg/superduck/logging"
	"github.com/FelixdelasPozas/SuperDuck/pkg/superduck/types"
	"github.com/FelixdelasPozas/SuperDuck/pkg/transfer"
)

var logger = logging.Get("app")

// appOptions selects which parts of the App a command needs.
type appOptions struct {
	// remote connects to the bucket and starts a dispatcher.
	remote bool
	// offlineOK lets a remote App start without a bucket when the AWS
	// settings are incomplete. The reason is kept in App.Offline.
	offlineOK bool
	// lock takes the single-instance lock; commands that change the
	// catalog need it.
	lock bool
	// tui silences console logging.
	tui bool
	// empty starts from an empty catalog instead of loading the database.
	empty bool
}

// App holds everything a command works with. It is built once per command
// and closed when the command returns.
type App struct {
	Config     *config.Config
	Model      *view.Model
	Executor   *transfer.S3Executor
	Dispatcher *transfer.Dispatcher
	History    *history.Store
	Lock       *instance.Lock

	// Offline says why there is no Dispatcher, if there is none.
	Offline string
}

// loadConfig reads the config file and applies the persistent flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if dbFile != "" {
		if cfg.Database, err = config.ExpandPath(dbFile); err != nil {
			return nil, err
		}
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

func initLogging(cfg *config.Config, tui bool) error {
	rotation := logging.DefaultRotationConfig()
	if cfg.Logging.Rotation.MaxSize != "" {
		size, err := types.ParseSize(cfg.Logging.Rotation.MaxSize)
		if err != nil {
			return fmt.Errorf("invalid logging.rotation.max_size: %w", err)
		}
		rotation.MaxSize = size
	}
	if cfg.Logging.Rotation.MaxBackups > 0 {
		rotation.MaxBackups = cfg.Logging.Rotation.MaxBackups
	}

	lc := logging.Config{
		Level:      cfg.Logging.Level,
		Path:       cfg.Logging.Path,
		Rotation:   rotation,
		Components: cfg.Logging.Components,
		TUIMode:    tui,
	}
	if verbose {
		lc.ConsoleLevel = "debug"
	}
	return logging.Init(lc)
}

// newApp builds the App. On error everything acquired so far is released.
func newApp(ctx context.Context, opts appOptions) (app *App, err error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := initLogging(cfg, opts.tui); err != nil {
		return nil, err
	}

	app = &App{Config: cfg}
	defer func() {
		if err != nil {
			app.release()
		}
	}()

	if opts.lock {
		if app.Lock, err = instance.Acquire(config.LockPath()); err != nil {
			return nil, err
		}
	}

	cat := catalog.New()
	if !opts.empty {
		if cat, err = catalog.OpenFile(cfg.Database); err != nil {
			return nil, fmt.Errorf("failed to open catalog %s: %w", cfg.Database, err)
		}
	}
	app.Model = view.NewModel(cat)
	printVerbose("catalog %s: %d nodes", cfg.Database, cat.Len())

	if opts.remote {
		if err = app.connect(ctx); err != nil {
			if !opts.offlineOK {
				return nil, err
			}
			app.Offline = err.Error()
			logger.Warn("starting offline", "reason", app.Offline)
			err = nil
		}
	}

	if cfg.History.Enabled {
		if app.History, err = history.Open(cfg.History.Path); err != nil {
			return nil, err
		}
		if cfg.History.RetentionDays > 0 {
			if _, perr := app.History.Prune(time.Duration(cfg.History.RetentionDays) * 24 * time.Hour); perr != nil {
				logger.Warn("history prune failed", "err", perr)
			}
		}
	}

	logger.Debug("app ready", "database", cfg.Database, "remote", opts.remote, "lock", opts.lock)
	return app, nil
}

func (a *App) connect(ctx context.Context) error {
	if err := a.Config.RemoteReady(); err != nil {
		return err
	}
	client, err := transfer.NewS3Client(ctx, a.Config.AWS)
	if err != nil {
		return err
	}
	a.Executor = transfer.NewS3Executor(client, a.Config.AWS.Bucket)
	a.Dispatcher = transfer.NewDispatcher(a.Executor)
	return nil
}

// Catalog returns the catalog behind the model.
func (a *App) Catalog() *catalog.Catalog { return a.Model.Catalog() }

// Save writes the catalog to the database file.
func (a *App) Save() error {
	if err := a.Model.SaveFile(a.Config.Database); err != nil {
		return fmt.Errorf("failed to save catalog: %w", err)
	}
	logger.Info("catalog saved", "path", a.Config.Database, "nodes", a.Catalog().Len())
	return nil
}

// Run submits req, waits for it while reporting progress, applies the
// result to the catalog and records it in the history. Cancelling ctx
// aborts the operation; the partial result is still applied.
func (a *App) Run(ctx context.Context, req transfer.Request, progress func(transfer.Progress)) (transfer.Result, transfer.Applied, error) {
	if a.Dispatcher == nil {
		return transfer.Result{}, transfer.Applied{}, errors.New("not connected to a bucket")
	}
	if err := a.Dispatcher.Submit(ctx, req); err != nil {
		return transfer.Result{}, transfer.Applied{}, err
	}

	done := ctx.Done()
	var res transfer.Result
wait:
	for {
		select {
		case p := <-a.Dispatcher.Progress():
			if progress != nil {
				progress(p)
			}
		case res = <-a.Dispatcher.Results():
			break wait
		case <-done:
			a.Dispatcher.Abort()
			done = nil
		}
	}

	applied, err := transfer.Apply(a.Model, res)
	a.record(res)
	return res, applied, err
}

// record stores res in the history, if enabled.
func (a *App) record(res transfer.Result) {
	if a.History == nil {
		return
	}
	if _, err := a.History.Record(res); err != nil {
		logger.Warn("failed to record history", "id", res.Request.ID, "err", err)
	}
}

// Close saves a modified catalog and releases everything the App holds.
func (a *App) Close() error {
	var errs []error
	if a.Model != nil && a.Catalog().IsDirty() {
		errs = append(errs, a.Save())
	}
	errs = append(errs, a.release())
	return errors.Join(errs...)
}

// closeApp closes app and adds its error to *errp. Commands defer it so a
// failed catalog save is reported.
func closeApp(app *App, errp *error) {
	if err := app.Close(); err != nil {
		*errp = errors.Join(*errp, err)
	}
}

func (a *App) release() error {
	var errs []error
	if a.History != nil {
		errs = append(errs, a.History.Close())
		a.History = nil
	}
	if a.Lock != nil {
		errs = append(errs, a.Lock.Release())
		a.Lock = nil
	}
	errs = append(errs, logging.Close())
	return errors.Join(errs...)
}
