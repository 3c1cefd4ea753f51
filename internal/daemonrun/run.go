package daemonrun

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"vidmint/internal/config"
	"vidmint/internal/daemon"
	"vidmint/internal/journal"
	"vidmint/internal/logging"
	"vidmint/internal/mint"
	"vidmint/internal/notifications"
	"vidmint/internal/preflight"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
	// Offline keeps metadata in memory instead of uploading it.
	Offline bool
}

// Run starts the vidmint daemon and blocks until SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	for _, result := range preflight.Failed(preflight.RunAll(signalCtx, cfg)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
		)
	}

	store, err := journal.Open(cfg)
	if err != nil {
		logger.Error("open journal", logging.Error(err))
		return err
	}

	backend, err := OpenBackend(signalCtx, cfg, logger, BackendOptions{Offline: opts.Offline})
	if err != nil {
		_ = store.Close()
		logging.ErrorWithContext(logger, "backend unavailable", "backend_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check chain.rpc_url, chain.chain_id and the signing key"),
		)
		return err
	}
	defer backend.Close()

	notifier := notifications.NewService(cfg)
	template := backend.Dependencies(cfg, notifier, mint.JournalRecorder{Store: store}, logger)
	d, err := daemon.New(cfg, template, store, notifier, logger)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check api.bind and that no other vidmint daemon is running"),
		)
		return err
	}

	<-signalCtx.Done()
	logger.Info("vidmint daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}
