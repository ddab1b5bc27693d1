package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/chatbubble/internal/model"
)

var hideOpts struct {
	quiet  bool // Suppress output, return exit code only
	strict bool // Fail when no bubble was removed
}

// errNothingHidden is returned by hide --strict when none of the ids had a bubble.
var errNothingHidden = errors.New("none of the given users had a bubble")

var hideCmd = &cobra.Command{
	Use:   "hide <user-id>...",
	Short: "Hide chat bubbles",
	Long: `Hide the chat bubbles of one or more users.

Hiding a user without a bubble is not an error. With --strict the exit code
is 1 when none of the given users had a bubble, so the command composes with
shell conditionals:

  chatbubble hide --strict --quiet 42 && echo "bubble removed"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runHide,
}

var hideAllCmd = &cobra.Command{
	Use:   "hide-all",
	Short: "Hide every chat bubble",
	Args:  cobra.NoArgs,
	RunE:  runHideAll,
}

func init() {
	rootCmd.AddCommand(hideCmd)
	rootCmd.AddCommand(hideAllCmd)

	for _, cmd := range []*cobra.Command{hideCmd, hideAllCmd} {
		cmd.Flags().BoolVarP(&hideOpts.quiet, "quiet", "q", false,
			"Suppress output")
	}
	hideCmd.Flags().BoolVar(&hideOpts.strict, "strict", false,
		"Exit with status 1 when no bubble was removed")
}

func runHide(cmd *cobra.Command, args []string) error {
	client, err := connect()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	removed := 0
	for _, arg := range args {
		ok, err := client.Hide(model.Identity(arg))
		if err != nil {
			return err
		}
		if ok {
			removed++
		}
		logger.Debug("hide", "user_id", arg, "removed", ok)
	}

	if !hideOpts.quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Hid %d of %d bubbles\n", removed, len(args))
	}
	return hideResult(removed, hideOpts.strict)
}

// hideResult decides the outcome of hide once every id has been sent.
func hideResult(removed int, strict bool) error {
	if strict && removed == 0 {
		return errNothingHidden
	}
	return nil
}

func runHideAll(cmd *cobra.Command, args []string) error {
	client, err := connect()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	n, err := client.HideAll()
	if err != nil {
		return err
	}
	if !hideOpts.quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Hid %d bubbles\n", n)
	}
	return nil
}
