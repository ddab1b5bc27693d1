package display

import (
	"errors"
	"log/slog"
	"sort"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/chatbubble/internal/config"
	"github.com/jmylchreest/chatbubble/internal/model"
	"github.com/jmylchreest/chatbubble/internal/overlay"
)

var errNoDisplay = errors.New("no display available")

// Compositor is the overlay.Controller backed by layer-shell windows
// anchored to the top-left of the output, with margins as the position.
type Compositor struct {
	app    *gtk.Application
	logger *slog.Logger

	size   int
	scheme string
	input  overlay.Input

	next    overlay.Handle
	windows map[overlay.Handle]*bubbleWindow
}

// NewCompositor creates a compositor attaching windows to app.
func NewCompositor(app *gtk.Application, cfg *config.DaemonConfig, logger *slog.Logger) *Compositor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = config.DefaultDaemonConfig()
	}
	return &Compositor{
		app:     app,
		logger:  logger,
		size:    cfg.Bubble.Size,
		scheme:  cfg.Theme.ColorScheme,
		windows: make(map[overlay.Handle]*bubbleWindow),
	}
}

// SetInput sets where pointer samples and close presses are sent.
func (c *Compositor) SetInput(in overlay.Input) {
	c.input = in
}

// Configure applies window settings to bubbles created from now on.
func (c *Compositor) Configure(cfg *config.DaemonConfig) {
	c.size = cfg.Bubble.Size
	c.scheme = cfg.Theme.ColorScheme
}

// OverlayPermitted reports whether a display is available to draw on.
func (c *Compositor) OverlayPermitted() bool {
	return gdk.DisplayGetDefault() != nil
}

// Create implements overlay.Controller.
func (c *Compositor) Create(b model.Bubble, at model.Position) (overlay.Handle, error) {
	if !c.OverlayPermitted() {
		return 0, overlay.Denied("create", b.Identity, errNoDisplay)
	}

	w := newBubbleWindow(c.app, b, at, c.size, c.scheme, c.currentInput, c.logger)
	c.next++
	h := c.next
	c.windows[h] = w
	w.show()

	c.logger.Debug("bubble window created", "identity", b.Identity, "handle", h, "x", at.X, "y", at.Y)
	return h, nil
}

// Move implements overlay.Controller.
func (c *Compositor) Move(h overlay.Handle, to model.Position) error {
	w, ok := c.windows[h]
	if !ok {
		return nil
	}
	w.moveTo(to)
	return nil
}

// Destroy implements overlay.Controller.
func (c *Compositor) Destroy(h overlay.Handle) error {
	w, ok := c.windows[h]
	if !ok {
		return nil
	}
	delete(c.windows, h)
	w.close()

	c.logger.Debug("bubble window destroyed", "identity", w.bubble.Identity, "handle", h)
	return nil
}

// Handles returns the live window handles in creation order.
func (c *Compositor) Handles() []overlay.Handle {
	hs := make([]overlay.Handle, 0, len(c.windows))
	for h := range c.windows {
		hs = append(hs, h)
	}
	sort.Slice(hs, func(i, j int) bool { return hs[i] < hs[j] })
	return hs
}

func (c *Compositor) currentInput() overlay.Input {
	return c.input
}

// systemDark checks libadwaita for the system dark mode preference.
func systemDark() bool {
	return adw.StyleManagerGetDefault().Dark()
}
