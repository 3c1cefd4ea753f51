package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"vidmint/internal/api"
	"vidmint/internal/config"
	"vidmint/internal/journal"
	"vidmint/internal/logging"
	"vidmint/internal/mint"
	"vidmint/internal/notifications"
)

const maxSweepInterval = time.Minute

// Daemon owns the session registry and the API server and enforces
// single-instance execution.
type Daemon struct {
	cfg      *config.Config
	base     *slog.Logger
	logger   *slog.Logger
	template mint.Dependencies
	journal  *journal.Store
	sessions *SessionRegistry
	api      *apiServer

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
	Sessions     int
	APIAddress   string
	JournalPath  string
	LockFilePath string
}

// New constructs a daemon. template supplies the collaborators every session
// shares; its Recorder and Notifier are filled from store and notifier when
// unset.
func New(cfg *config.Config, template mint.Dependencies, store *journal.Store, notifier notifications.Service, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("daemon requires config and logger")
	}
	if template.Deriver == nil || template.Addresser == nil || template.Submitter == nil {
		return nil, errors.New("daemon requires deriver, addresser and submitter")
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	if template.Notifier == nil {
		template.Notifier = notifier
	}
	if template.Recorder == nil && store != nil {
		template.Recorder = mint.JournalRecorder{Store: store}
	}
	if template.Logger == nil {
		template.Logger = logger
	}
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		base:     logger,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		template: template,
		journal:  store,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.sessions = NewSessionRegistry(d.newSession, cfg.SessionTTL(), logger)
	return d, nil
}

func (d *Daemon) newSession() (*mint.Workflow, error) {
	ctx := d.ctx
	if ctx == nil {
		return nil, errors.New("daemon not running")
	}
	return mint.New(ctx, d.template)
}

// Start acquires the daemon lock, starts the API server and the idle session
// sweeper.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := d.cfg.EnsureDirectories(); err != nil {
		return err
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another vidmint daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.sessions.reopen()
	srv := newAPIServer(d.cfg.API.Bind, d.apiOptions(), d.base)
	if err := srv.start(d.ctx); err != nil {
		d.cancel()
		d.ctx, d.cancel = nil, nil
		_ = d.lock.Unlock()
		return err
	}
	d.api = srv
	go d.sweep(d.ctx)

	d.running.Store(true)
	d.logger.Info("vidmint daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("api", srv.address()),
	)
	return nil
}

func (d *Daemon) apiOptions() *api.Options {
	health := api.HealthResponse{
		ChainID:  d.cfg.Chain.ChainID,
		Contract: d.cfg.Chain.ContractName,
		Owner:    d.template.Owner.Hex(),
	}
	opts := &api.Options{
		Sessions: d.sessions,
		Token:    d.cfg.API.Token,
		Logger:   d.base,
		Health:   health,
	}
	if d.journal != nil {
		opts.History = d.journal
	}
	return opts
}

func (d *Daemon) sweep(ctx context.Context) {
	interval := d.cfg.SessionTTL() / 2
	if interval <= 0 || interval > maxSweepInterval {
		interval = maxSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.sessions.Sweep()
		}
	}
}

// Stop abandons all sessions, stops the API server and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.sessions.Close()
	d.api.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("vidmint daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close stops the daemon and closes the journal.
func (d *Daemon) Close() error {
	d.Stop()
	if d.journal != nil {
		return d.journal.Close()
	}
	return nil
}

// Sessions exposes the session registry.
func (d *Daemon) Sessions() *SessionRegistry {
	return d.sessions
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Sessions:     d.sessions.Len(),
		LockFilePath: d.lockPath,
	}
	if d.journal != nil {
		status.JournalPath = d.journal.Path()
	}
	if d.api != nil && status.Running {
		status.APIAddress = d.api.address()
	}
	return status
}
