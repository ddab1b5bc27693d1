// Package main is the entry point for the chatbubbled bubble daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/chatbubble/internal/config"
	"github.com/jmylchreest/chatbubble/internal/daemon"
	"github.com/jmylchreest/chatbubble/internal/dbus"
	"github.com/jmylchreest/chatbubble/internal/display"
	"github.com/jmylchreest/chatbubble/internal/overlay"
	"github.com/jmylchreest/chatbubble/internal/theme"
)

const (
	appID   = "io.github.jmylchreest.chatbubbled"
	appName = "chatbubbled"
)

var (
	// Build-time variables
	version = "dev"
)

func main() {
	headless := flag.Bool("headless", false, "Track bubbles without drawing windows (for testing and CI)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	configPath := flag.String("config", "", "Path to config file (default: ~/.config/chatbubble/chatbubbled.toml)")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(appName, "version", version)
		os.Exit(0)
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	path := *configPath
	if path == "" {
		var err error
		path, err = config.DaemonConfigPath()
		if err != nil {
			logger.Error("failed to get config path", "error", err)
			os.Exit(1)
		}
	}

	cfg, err := config.LoadDaemonConfigFile(path)
	if err != nil {
		logger.Error("failed to load config", "path", path, "error", err)
		os.Exit(1)
	}

	backend := config.Backend(cfg.Daemon.Backend)
	if *headless {
		backend = config.BackendHeadless
	}
	logger.Info("starting chatbubbled", "version", version, "backend", backend, "config", path)

	var status int
	switch backend {
	case config.BackendHeadless:
		status = runHeadless(cfg, path, logger)
	default:
		status = runLayerShell(cfg, path, logger)
	}

	if status != 0 {
		logger.Error("exited with error", "status", status)
		os.Exit(status)
	}
	logger.Info("chatbubbled stopped")
}

// runHeadless tracks bubbles in memory. Commands and signals behave as with
// real windows; there is no pointer input.
func runHeadless(cfg *config.DaemonConfig, configPath string, logger *slog.Logger) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	idle := make(chan struct{}, 1)
	svc, err := startServices(ctx, serviceOptions{
		Config:     cfg,
		ConfigPath: configPath,
		Controller: overlay.NewMemoryController(),
		Permission: overlay.AlwaysPermitted,
		OnIdle: func() {
			select {
			case idle <- struct{}{}:
			default:
			}
		},
		Logger: logger,
	})
	if err != nil {
		logger.Error("failed to start", "error", err)
		return 1
	}

	logger.Info("chatbubbled ready", "dbus_interface", dbus.DBusInterface)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", sig)
	case <-idle:
		logger.Info("no bubbles left, shutting down")
	}

	cancel()
	svc.stop()
	return 0
}

// runLayerShell draws bubbles as layer-shell windows. The session manager
// runs on the GTK main loop.
func runLayerShell(cfg *config.DaemonConfig, configPath string, logger *slog.Logger) int {
	app := adw.NewApplication(appID, 0)
	mainLoop := display.MainLoop{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu      sync.Mutex
		svc     *services
		running atomic.Bool
		failed  atomic.Bool
		once    sync.Once
	)

	// Closing the manager waits on the main loop, so it runs on its own
	// goroutine and quits the application afterwards.
	shutdown := func(reason string) {
		once.Do(func() {
			logger.Info("shutting down", "reason", reason)
			cancel()
			go func() {
				mu.Lock()
				s := svc
				mu.Unlock()
				if s != nil {
					s.stop()
				}
				mainLoop.Post(func() { app.Quit() })
			}()
		})
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			shutdown(sig.String())
		case <-ctx.Done():
		}
	}()

	app.ConnectActivate(func() {
		if running.Swap(true) {
			logger.Warn("application already running")
			return
		}

		loader := theme.NewLoader(logger)
		if err := loader.LoadTheme(cfg.Theme.Name); err != nil {
			logger.Warn("failed to load theme", "theme", cfg.Theme.Name, "error", err)
		}
		loader.Apply(nil)
		themeName := cfg.Theme.Name

		compositor := display.NewCompositor(&app.Application, cfg, logger)

		s, err := startServices(ctx, serviceOptions{
			Config:     cfg,
			ConfigPath: configPath,
			ThemesDir:  loader.Dir(),
			Controller: compositor,
			Permission: compositor,
			Executor:   mainLoop,
			OnIdle:     func() { shutdown("idle") },
			OnConfig: func(newCfg *config.DaemonConfig, notifier *daemon.InternalNotifier) {
				mainLoop.Post(func() {
					compositor.Configure(newCfg)
					if newCfg.Theme.Name == themeName {
						return
					}
					themeName = newCfg.Theme.Name
					if err := loader.LoadTheme(themeName); err != nil {
						logger.Warn("failed to load new theme", "theme", themeName, "error", err)
						notifier.NotifyThemeError(err)
					}
				})
			},
			OnTheme: func(notifier *daemon.InternalNotifier) {
				mainLoop.Post(func() {
					if err := loader.Reload(); err != nil {
						logger.Warn("failed to reload theme", "error", err)
						notifier.NotifyThemeError(err)
					}
				})
			},
			Logger: logger,
		})
		if err != nil {
			logger.Error("failed to start", "error", err)
			failed.Store(true)
			app.Quit()
			return
		}
		compositor.SetInput(s.daemon.Manager())

		mu.Lock()
		svc = s
		mu.Unlock()

		logger.Info("chatbubbled ready", "dbus_interface", dbus.DBusInterface)

		// Create a hidden window to keep the application running
		// (GTK apps quit when all windows are closed)
		keepAliveWindow := gtk.NewWindow()
		keepAliveWindow.SetApplication(&app.Application)
		keepAliveWindow.SetDefaultSize(1, 1)
		keepAliveWindow.SetDecorated(false)
		keepAliveWindow.SetVisible(false)
	})

	app.ConnectShutdown(func() {
		logger.Info("application shutting down")
		running.Store(false)
	})

	// GApplication parses its own options; ours were consumed by flag.
	status := app.Run(os.Args[:1])
	if status == 0 && failed.Load() {
		status = 1
	}
	return status
}
