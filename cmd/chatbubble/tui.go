package main

import (
	"github.com/spf13/cobra"

	"github.com/jmylchreest/chatbubble/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive TUI dashboard",
	Long: `Launch the interactive terminal dashboard for active bubbles.

The TUI provides:
  - Live list of active bubbles (refreshed on every daemon signal)
  - Search by user id or name
  - Detail view with position and avatar
  - Hide one or all bubbles
  - Copy to clipboard support

Key bindings:
  j/k, ↑/↓    Navigate list
  enter       View bubble details
  d           Hide the selected bubble
  D           Hide all bubbles
  c           Copy user id to clipboard
  C / alt+c   Copy visible bubbles as JSON / YAML
  /           Search
  r           Refresh
  ?           Show help
  q           Quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	client, err := connect()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	return tui.Run(tui.RunOptions{
		Config:  getConfig(),
		Backend: client,
		Watch:   client.Watch,
	})
}
