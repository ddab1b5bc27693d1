// Package main provides the CLI entrypoint for chatbubble.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/chatbubble/internal/config"
	"github.com/jmylchreest/chatbubble/internal/dbus"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// Global configuration and state
var (
	cfg        *config.Config
	globalOpts struct {
		verbose    bool
		configPath string
	}
	logger *slog.Logger
)

// errDaemonNotRunning is returned when chatbubbled does not own its bus name.
var errDaemonNotRunning = errors.New("chatbubbled is not running")

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "chatbubble",
	Short: "Control floating chat bubbles on Linux desktops",
	Long: `chatbubble controls chatbubbled, a daemon that shows floating, draggable
chat-head bubbles on Wayland desktops.

Bubbles are keyed by user id: showing the same user twice keeps a single
bubble. Clicking a bubble or closing it with its close button is reported
as a D-Bus signal that 'chatbubble listen' can follow.

Running chatbubble without a subcommand launches the interactive TUI.`,
	Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger()

		var err error
		cfg, err = config.LoadConfig(globalOpts.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/chatbubble/config.toml)")
}

// setupLogger configures the global slog logger.
func setupLogger() {
	level := slog.LevelWarn
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// getConfig returns the global config instance.
func getConfig() *config.Config {
	if cfg == nil {
		return config.DefaultConfig()
	}
	return cfg
}

// connect opens a bus client and checks the daemon is running.
// The caller closes the client.
func connect() (*dbus.Client, error) {
	client, err := dbus.NewClient(logger)
	if err != nil {
		return nil, err
	}
	if !client.Running() {
		_ = client.Close()
		return nil, errDaemonNotRunning
	}
	return client, nil
}
