package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/chatbubble/internal/dbus"
	"github.com/jmylchreest/chatbubble/internal/output"
)

var statusOpts struct {
	capacity int
	follow   bool
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Output Waybar-compatible JSON status",
	Long: `Output bubble status in Waybar's custom module JSON format.

This is designed to be used with Waybar's custom module:

  "custom/chatbubble": {
    "exec": "chatbubble status --follow",
    "return-type": "json",
    "on-click": "chatbubble tui",
    "on-click-right": "chatbubble hide-all"
  }

The output includes:
  - text: Number of active bubbles
  - alt/class: active, empty, denied or unavailable
  - tooltip: Names of the users with bubbles
  - percentage: Active bubbles relative to --capacity (when set)

With --follow a new line is written whenever a bubble signal arrives.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().IntVar(&statusOpts.capacity, "capacity", 0,
		"Bubble count that maps to 100%")
	statusCmd.Flags().BoolVar(&statusOpts.follow, "follow", false,
		"Keep running and print a status line on every change")
}

func runStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	client, err := dbus.NewClient(logger)
	if err != nil {
		return output.WriteStatus(out, output.UnavailableStatus())
	}
	defer func() { _ = client.Close() }()

	if err := writeCurrentStatus(out, client); err != nil {
		return err
	}
	if !statusOpts.follow {
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return client.Watch(ctx, func(dbus.Signal) {
		if err := writeCurrentStatus(out, client); err != nil {
			logger.Warn("failed to write status", "error", err)
		}
	})
}

// writeCurrentStatus queries the daemon and writes one status line.
// An unreachable daemon is reported as a status, not an error.
func writeCurrentStatus(w io.Writer, client *dbus.Client) error {
	if !client.Running() {
		return output.WriteStatus(w, output.UnavailableStatus())
	}

	sessions, err := client.List()
	if err != nil {
		logger.Debug("list failed", "error", err)
		return output.WriteStatus(w, output.UnavailableStatus())
	}
	permitted, err := client.OverlayPermitted()
	if err != nil {
		logger.Debug("permission query failed", "error", err)
		permitted = true
	}
	return output.WriteStatus(w, output.NewWaybarStatus(sessions, permitted, statusOpts.capacity))
}
