package daemon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"github.com/bobarin/dramacast/internal/api"
	"github.com/bobarin/dramacast/internal/config"
	"github.com/bobarin/dramacast/internal/models"
)

// Sweeper is the part of the worker the daemon drives.
type Sweeper interface {
	RunOnce(ctx context.Context) (*models.RunRecord, error)
	Snapshot() models.WorkerStatus
}

// Daemon runs the sweep loop and the status API as one process. A file lock
// keeps a second instance from racing the first over the same sheet rows.
type Daemon struct {
	cfg    *config.Config
	worker Sweeper
	router http.Handler
	lock   *flock.Flock
	wake   chan struct{}
}

func New(cfg *config.Config, w Sweeper, queue api.QueueReader, history api.HistoryReader) *Daemon {
	d := &Daemon{
		cfg:    cfg,
		worker: w,
		lock:   flock.New(cfg.LockPath()),
		wake:   make(chan struct{}, 1),
	}

	handler := api.NewHandler(w, queue, history, d.Wake)
	d.router = api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
	})
	return d
}

// Wake requests an immediate sweep. It reports false when one is already
// queued.
func (d *Daemon) Wake() bool {
	select {
	case d.wake <- struct{}{}:
		return true
	default:
		return false
	}
}

// Run acquires the instance lock, then serves the API and the poll loop
// until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", d.cfg.LockPath(), err)
	}
	if !ok {
		return fmt.Errorf("another dramacast instance is already running (lock %s)", d.cfg.LockPath())
	}
	defer func() {
		if err := d.lock.Unlock(); err != nil {
			log.Printf("[Daemon] Warning: could not release lock: %v", err)
		}
	}()

	server := &http.Server{
		Addr:    ":" + d.cfg.Daemon.Port,
		Handler: d.router,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("[Daemon] Status API listening on :%s", d.cfg.Daemon.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutCtx)
	})

	g.Go(func() error {
		return d.pollLoop(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Printf("[Daemon] Stopped")
	return nil
}

// pollLoop sweeps immediately, then again on every tick or wake trigger.
// A wake resets the tick so the next scheduled sweep keeps its full spacing.
func (d *Daemon) pollLoop(ctx context.Context) error {
	interval := d.cfg.PollInterval()
	log.Printf("[Daemon] Sweeping every %s (POST /v1/run wakes early)", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	d.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			d.sweep(ctx)
		case <-d.wake:
			log.Printf("[Daemon] Wake received, sweeping now")
			d.sweep(ctx)
			ticker.Reset(interval)
		}
	}
}

func (d *Daemon) sweep(ctx context.Context) {
	if _, err := d.worker.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("[Daemon] Sweep failed: %v", err)
	}
}
