package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/chatbubble/internal/dbus"
	"github.com/jmylchreest/chatbubble/internal/output"
)

var listenOpts struct {
	format string
}

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Follow bubble clicks and closes",
	Long: `Print bubble signals as they are emitted by chatbubbled.

Each line is one of:
  clicked   the user tapped a bubble
  closed    a bubble went away (reason: dismissed, hidden, cleared, shutdown)
  teardown  the last bubble was removed

Use --format json for one JSON object per line. Runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runListen,
}

func init() {
	rootCmd.AddCommand(listenCmd)

	listenCmd.Flags().StringVarP(&listenOpts.format, "format", "f", "plain",
		"Output format: plain, json")
}

func runListen(cmd *cobra.Command, args []string) error {
	writer, err := output.NewSignalWriter(cmd.OutOrStdout(), output.FormatType(listenOpts.format))
	if err != nil {
		return err
	}

	// The daemon may start later; signals are matched on the bus either way.
	client, err := dbus.NewClient(logger)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	if !client.Running() {
		logger.Warn("chatbubbled is not running yet, waiting for signals")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return client.Watch(ctx, func(sig dbus.Signal) {
		if err := writer.Write(sig); err != nil {
			logger.Warn("failed to write signal", "error", err)
		}
	})
}
