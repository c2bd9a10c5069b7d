package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/gofrs/flock"

	"noticiero/internal/config"
	"noticiero/internal/deps"
	"noticiero/internal/logging"
	"noticiero/internal/pipeline"
	"noticiero/internal/store"
)

// Daemon coordinates the audio runner and the HTTP API and enforces
// single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *store.Store
	orch   *pipeline.Orchestrator
	api    *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	DatabasePath string
	DatabaseOK   bool
	LockFilePath string
	Pipeline     pipeline.Status
	Dependencies []deps.Status
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, st *store.Store, orch *pipeline.Orchestrator, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || st == nil || orch == nil {
		return nil, errors.New("daemon requires config, store, and orchestrator")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		orch:     orch,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, starts the audio runner and begins serving
// the API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another noticiero daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.orch.Runner().Start(d.ctx); err != nil {
		d.abortStart()
		return fmt.Errorf("start audio runner: %w", err)
	}
	if err := d.api.start(d.ctx); err != nil {
		d.orch.Runner().Stop()
		d.abortStart()
		return err
	}

	d.running.Store(true)
	d.logger.Info("noticiero daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api", d.api.address()),
	)
	return nil
}

func (d *Daemon) abortStart() {
	_ = d.lock.Unlock()
	d.cancel()
	d.ctx = nil
	d.cancel = nil
}

// Stop stops the API, drains queued audio jobs and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.api.stop()
	d.orch.Runner().Stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("noticiero daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr returns the address the API listens on, or "" before Start.
func (d *Daemon) Addr() string {
	return d.api.address()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) (Status, error) {
	summary, err := d.orch.Status(ctx)
	if err != nil {
		return Status{}, err
	}
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.store.Path(),
		DatabaseOK:   d.store.Ping(ctx) == nil,
		LockFilePath: d.lockPath,
		Pipeline:     summary,
		Dependencies: []deps.Status{deps.CheckFFmpeg(d.cfg.FFmpegBinary())},
	}, nil
}
