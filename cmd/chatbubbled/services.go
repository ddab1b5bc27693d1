package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmylchreest/chatbubble/internal/config"
	"github.com/jmylchreest/chatbubble/internal/daemon"
	"github.com/jmylchreest/chatbubble/internal/dbus"
	"github.com/jmylchreest/chatbubble/internal/overlay"
	"github.com/jmylchreest/chatbubble/internal/presence"
	"github.com/jmylchreest/chatbubble/internal/session"
	"github.com/jmylchreest/chatbubble/internal/sound"
)

// serviceOptions configures the backend-independent part of the daemon.
type serviceOptions struct {
	Config     *config.DaemonConfig
	ConfigPath string
	ThemesDir  string

	Controller overlay.Controller
	Permission overlay.Permission
	Executor   session.Executor

	// OnIdle is called when exit_when_idle fires.
	OnIdle func()
	// OnConfig is called after a reloaded config has been applied to the
	// daemon and sound cues, for backend specific settings.
	OnConfig func(cfg *config.DaemonConfig, notifier *daemon.InternalNotifier)
	// OnTheme is called when a user theme file changes.
	OnTheme func(notifier *daemon.InternalNotifier)

	Logger *slog.Logger
}

// services holds everything started by startServices.
type services struct {
	server    *dbus.BubbleServer
	daemon    *daemon.Daemon
	indicator *presence.DBusIndicator
	cues      *sound.Cues
	notifier  *daemon.InternalNotifier
	watcher   *daemon.ConfigWatcher
	logger    *slog.Logger
}

// startServices wires the session manager to the bus, presence, sound and
// config hot reload.
func startServices(ctx context.Context, opts serviceOptions) (*services, error) {
	cfg := opts.Config
	logger := opts.Logger
	s := &services{logger: logger}

	var indicator presence.Indicator = presence.Nop{}
	if cfg.Presence.Enabled {
		s.indicator = presence.ConnectDBusIndicator(cfg.Presence.Title, logger)
		indicator = s.indicator
	}

	s.cues = sound.NewCues(cfg, nil, logger)
	s.server = dbus.NewBubbleServer(nil, logger)

	d, err := daemon.New(daemon.Options{
		Config:     cfg,
		Controller: opts.Controller,
		Permission: opts.Permission,
		Presence:   indicator,
		Publisher:  s.server,
		Cues:       s.cues,
		Logger:     logger,
		Executor:   opts.Executor,
		OnIdle:     opts.OnIdle,
	})
	if err != nil {
		s.release()
		return nil, fmt.Errorf("failed to create daemon: %w", err)
	}
	s.daemon = d
	s.server.SetHandler(d)

	if err := s.server.Start(); err != nil {
		s.release()
		return nil, fmt.Errorf("failed to start D-Bus server: %w", err)
	}

	s.notifier = daemon.NewInternalNotifier(presence.NewBusNotifier(s.server.Connection()), logger)

	s.watcher = daemon.NewConfigWatcher(opts.ConfigPath, opts.ThemesDir, logger)
	s.watcher.SetReloadCallback(func(newCfg *config.DaemonConfig) {
		if newCfg.Presence.Enabled != cfg.Presence.Enabled {
			logger.Warn("presence.enabled changes take effect after restart")
		}
		d.Apply(newCfg)
		s.cues.Configure(newCfg)
		if opts.OnConfig != nil {
			opts.OnConfig(newCfg, s.notifier)
		}
		s.notifier.NotifyConfigReloaded()
	})
	s.watcher.SetErrorCallback(s.notifier.NotifyConfigError)
	if opts.OnTheme != nil {
		s.watcher.SetThemeCallback(func() { opts.OnTheme(s.notifier) })
	}
	if err := s.watcher.Start(ctx, cfg); err != nil {
		logger.Warn("failed to start config watcher", "error", err)
	}

	return s, nil
}

// stop hides every bubble and releases the bus name. It blocks until the
// session manager has shut down, so it must not run on the manager's owner.
func (s *services) stop() {
	if s.watcher != nil {
		s.watcher.Stop()
	}
	if s.daemon != nil {
		s.daemon.Close()
	}
	if s.server != nil {
		if err := s.server.Stop(); err != nil {
			s.logger.Warn("failed to stop D-Bus server", "error", err)
		}
	}
	s.release()
}

// release frees the parts that do not depend on the manager.
func (s *services) release() {
	if s.indicator != nil {
		s.indicator.Close()
	}
	if s.cues != nil {
		s.cues.Close()
	}
}
