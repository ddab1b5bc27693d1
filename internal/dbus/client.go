package dbus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/chatbubble/internal/model"
)

// Client talks to a running chatbubbled over the session bus.
type Client struct {
	conn   *dbus.Conn
	obj    dbus.BusObject
	logger *slog.Logger
}

// NewClient connects to the session bus. The connection is private to the
// client and closed by Close.
func NewClient(logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	return &Client{
		conn:   conn,
		obj:    conn.Object(DBusBusName, DBusPath),
		logger: logger,
	}, nil
}

// Close closes the bus connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Running reports whether the bubble service currently owns its bus name.
func (c *Client) Running() bool {
	var hasOwner bool
	err := c.conn.BusObject().Call("org.freedesktop.DBus.NameHasOwner", 0, DBusBusName).Store(&hasOwner)
	if err != nil {
		c.logger.Debug("NameHasOwner failed", "error", err)
		return false
	}
	return hasOwner
}

// Show asks the daemon to display b. Errors match overlay.ErrOverlayDenied,
// overlay.ErrPlatformFailure or model.ErrEmptyIdentity where applicable.
func (c *Client) Show(b model.Bubble) error {
	call := c.obj.Call(DBusInterface+".Show", 0, string(b.Identity), b.DisplayName, b.AvatarURL)
	if call.Err != nil {
		return fmt.Errorf("failed to show bubble: %w", fromDBusError(call.Err))
	}
	return nil
}

// Hide asks the daemon to remove the bubble for id.
func (c *Client) Hide(id model.Identity) (bool, error) {
	var removed bool
	if err := c.obj.Call(DBusInterface+".Hide", 0, string(id)).Store(&removed); err != nil {
		return false, fmt.Errorf("failed to hide bubble: %w", err)
	}
	return removed, nil
}

// HideAll asks the daemon to remove all bubbles.
func (c *Client) HideAll() (int, error) {
	var removed int32
	if err := c.obj.Call(DBusInterface+".HideAll", 0).Store(&removed); err != nil {
		return 0, fmt.Errorf("failed to hide all bubbles: %w", err)
	}
	return int(removed), nil
}

// List returns the active bubbles.
func (c *Client) List() ([]model.SessionInfo, error) {
	var records []BubbleRecord
	if err := c.obj.Call(DBusInterface+".List", 0).Store(&records); err != nil {
		return nil, fmt.Errorf("failed to list bubbles: %w", err)
	}

	infos := make([]model.SessionInfo, 0, len(records))
	for _, r := range records {
		infos = append(infos, r.SessionInfo())
	}
	return infos, nil
}

// ActiveCount returns the number of active bubbles.
func (c *Client) ActiveCount() (int, error) {
	var n int32
	if err := c.obj.Call(DBusInterface+".ActiveCount", 0).Store(&n); err != nil {
		return 0, fmt.Errorf("failed to get active count: %w", err)
	}
	return int(n), nil
}

// OverlayPermitted reports whether the daemon can currently show bubbles.
func (c *Client) OverlayPermitted() (bool, error) {
	var ok bool
	if err := c.obj.Call(DBusInterface+".OverlayPermitted", 0).Store(&ok); err != nil {
		return false, fmt.Errorf("failed to query overlay permission: %w", err)
	}
	return ok, nil
}

// Watch subscribes to the bubble service signals and calls fn for each one
// until ctx is cancelled.
func (c *Client) Watch(ctx context.Context, fn func(Signal)) error {
	if err := c.conn.AddMatchSignal(
		dbus.WithMatchObjectPath(DBusPath),
		dbus.WithMatchInterface(DBusInterface),
	); err != nil {
		return fmt.Errorf("failed to add match rule: %w", err)
	}
	defer func() {
		_ = c.conn.RemoveMatchSignal(
			dbus.WithMatchObjectPath(DBusPath),
			dbus.WithMatchInterface(DBusInterface),
		)
	}()

	ch := make(chan *dbus.Signal, 16)
	c.conn.Signal(ch)
	defer c.conn.RemoveSignal(ch)

	c.logger.Debug("watching bubble signals", "interface", DBusInterface)

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig, ok := <-ch:
			if !ok {
				return fmt.Errorf("bus connection closed")
			}
			parsed, ok := ParseSignal(sig)
			if !ok {
				c.logger.Debug("ignoring signal", "name", sig.Name)
				continue
			}
			fn(parsed)
		}
	}
}
