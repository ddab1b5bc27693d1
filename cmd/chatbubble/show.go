package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/chatbubble/internal/model"
	"github.com/jmylchreest/chatbubble/internal/overlay"
)

var showOpts struct {
	name   string
	avatar string
}

var showCmd = &cobra.Command{
	Use:   "show <user-id>",
	Short: "Show a chat bubble for a user",
	Long: `Show a floating chat bubble for a user.

Showing a user that already has a bubble keeps the existing bubble where it
is. The avatar may be a file:// URL or a local path; when it cannot be
loaded the bubble shows the user's initials instead.

Examples:
  chatbubble show 42 --name "Alice Cooper" --avatar ~/.cache/avatars/42.png
  chatbubble show alice`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().StringVarP(&showOpts.name, "name", "n", "",
		"Display name (used for initials when there is no avatar)")
	showCmd.Flags().StringVarP(&showOpts.avatar, "avatar", "a", "",
		"Avatar image URL or path")
}

func runShow(cmd *cobra.Command, args []string) error {
	client, err := connect()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	b := model.Bubble{
		Identity:    model.Identity(args[0]),
		DisplayName: showOpts.name,
		AvatarURL:   showOpts.avatar,
	}
	if err := b.Validate(); err != nil {
		return err
	}

	err = client.Show(b)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, overlay.ErrOverlayDenied):
		return fmt.Errorf("overlay permission not granted: %w", err)
	case errors.Is(err, overlay.ErrPlatformFailure):
		return fmt.Errorf("compositor rejected the bubble window: %w", err)
	default:
		return err
	}
}
