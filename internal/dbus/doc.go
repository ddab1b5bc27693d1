// Package dbus implements the io.github.jmylchreest.ChatBubble D-Bus interface.
// The server exposes Show, Hide, HideAll, List, ActiveCount and
// OverlayPermitted and emits BubbleClicked, BubbleClosed and Teardown
// signals; the client wraps the same surface for the command line tools.
package dbus
