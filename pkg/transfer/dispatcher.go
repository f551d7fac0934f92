package transfer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/FelixdelasPozas/SuperDuck/pkg/superduck/logging"
)

var logger = logging.Get("transfer")

// ErrBusy is returned by Submit while an earlier operation is running or
// its Result is still waiting to be received.
var ErrBusy = errors.New("an operation is already in progress")

// Executor performs a Request against the remote store. Execute must honour
// ctx cancellation by returning with Aborted set, and must not retain report
// after returning.
type Executor interface {
	Execute(ctx context.Context, req Request, report func(Progress)) Result
}

// Dispatcher runs one Request at a time on a worker goroutine.
type Dispatcher struct {
	exec     Executor
	results  chan Result
	progress chan Progress

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// NewDispatcher returns a Dispatcher running requests with exec.
func NewDispatcher(exec Executor) *Dispatcher {
	return &Dispatcher{
		exec:     exec,
		results:  make(chan Result, 1),
		progress: make(chan Progress, 32),
	}
}

// Results delivers each finished Result once, after the worker is done with
// it. Results must be drained for later operations to finish.
func (d *Dispatcher) Results() <-chan Result { return d.results }

// Progress delivers progress updates. Updates are dropped when nobody reads.
func (d *Dispatcher) Progress() <-chan Progress { return d.progress }

// Busy reports whether an operation is running or its Result has not been
// received yet.
func (d *Dispatcher) Busy() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.busy()
}

func (d *Dispatcher) busy() bool {
	return d.running || len(d.results) > 0
}

// Submit starts req on a worker goroutine.
func (d *Dispatcher) Submit(ctx context.Context, req Request) error {
	d.mu.Lock()
	if d.busy() {
		d.mu.Unlock()
		return ErrBusy
	}
	ctx, cancel := context.WithCancel(ctx)
	d.running = true
	d.cancel = cancel
	d.mu.Unlock()

	logger.Info("operation started", "id", req.ID, "kind", req.Kind, "items", len(req.Items))

	go func() {
		defer cancel()
		start := time.Now()

		res := d.exec.Execute(ctx, req, d.report)
		res.Request = req
		res.Finished = time.Now()

		logger.Info("operation finished",
			"id", req.ID,
			"kind", req.Kind,
			"succeeded", len(res.Succeeded),
			"failed", len(res.Failed),
			"aborted", res.Aborted,
			"elapsed", time.Since(start).Round(time.Millisecond),
		)
		for path, err := range res.Failed {
			logger.Warn("item failed", "id", req.ID, "path", path, "err", err)
		}

		// results has room: Submit refuses while a result is unreceived
		d.mu.Lock()
		d.results <- res
		d.running = false
		d.cancel = nil
		d.mu.Unlock()
	}()
	return nil
}

// Wait blocks until the running operation's Result arrives or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) (Result, error) {
	select {
	case res := <-d.results:
		return res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Abort cancels the running operation, if any. Its Result is still
// delivered, with Aborted set.
func (d *Dispatcher) Abort() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		logger.Info("aborting operation")
		d.cancel()
	}
}

func (d *Dispatcher) report(p Progress) {
	select {
	case d.progress <- p:
	default:
	}
}
