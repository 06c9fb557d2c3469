// Package daemon composes the editor runtime: tiered store, session, inbox
// watcher, and web server, guarded by a filesystem lock so only one instance
// serves a state directory.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"subcue/internal/config"
	"subcue/internal/inbox"
	"subcue/internal/logging"
	"subcue/internal/notifications"
	"subcue/internal/session"
	"subcue/internal/store"
	"subcue/internal/validate"
	"subcue/internal/web"
)

type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	store   *store.Tiered
	sess    *session.Session
	watcher *inbox.Watcher
	web     *web.Server

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	logger = logging.NewComponentLogger(logger, "daemon")

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	primary, err := store.OpenPrimary(cfg.Paths.StateDir)
	if err != nil {
		return nil, fmt.Errorf("open primary store: %w", err)
	}
	tiered := store.NewTiered(
		store.NewMemory(cfg.Editor.CacheEntries),
		primary,
		store.NewFallback(cfg.Paths.FallbackDir, logger),
		logger,
	)

	notifier := notifications.NewService(cfg)

	sess := session.New(session.Options{
		Store:        tiered,
		Notifier:     notifier,
		Logger:       logger,
		HistoryDepth: cfg.Editor.HistoryDepth,
		Debounce:     time.Duration(cfg.Editor.AutosaveDebounceMS) * time.Millisecond,
		Limits: validate.Limits{
			MaxTextLength: cfg.Validation.MaxTextLength,
			MinDuration:   cfg.Validation.MinDuration,
			MaxDuration:   cfg.Validation.MaxDuration,
		},
	})

	watcher, err := inbox.New(cfg.Paths.InboxDir, sess, notifier, logger)
	if err != nil {
		_ = tiered.Close()
		return nil, fmt.Errorf("create inbox watcher: %w", err)
	}

	lockPath := filepath.Join(cfg.Paths.StateDir, "subcue.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    tiered,
		sess:     sess,
		watcher:  watcher,
		web:      web.New(cfg.Paths.APIBind, sess, logger),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Session returns the composed editing session.
func (d *Daemon) Session() *session.Session {
	return d.sess
}

// Start acquires the instance lock and launches the watcher and web server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another subcue instance is already serving this state directory")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.watcher.Run(runCtx); err != nil {
			d.logger.Error("inbox watcher stopped", logging.Error(err))
		}
	}()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.web.Run(runCtx); err != nil {
			d.logger.Error("web server stopped", logging.Error(err))
		}
	}()

	d.running.Store(true)
	d.logger.Info("subcue daemon started",
		logging.String("lock", d.lockPath),
		logging.String("bind", d.cfg.Paths.APIBind))
	return nil
}

// Stop shuts down background work, settles pending writes, and releases the
// lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()

	settleCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.sess.Close(settleCtx); err != nil {
		d.logger.Warn("settling pending writes on shutdown failed", logging.Error(err))
	}
	if err := d.store.Close(); err != nil {
		d.logger.Warn("closing store failed", logging.Error(err))
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("subcue daemon stopped")
}

// Run starts the daemon and blocks until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	d.Stop()
	return nil
}
