package dbus

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/jmylchreest/chatbubble/internal/model"
)

// Handler executes the commands received over the bus.
// The daemon implements it on top of the session manager.
type Handler interface {
	Show(b model.Bubble) error
	Hide(id model.Identity) bool
	HideAll() int
	List() []model.SessionInfo
	ActiveCount() int
	OverlayPermitted() bool
}

// BubbleServer implements the io.github.jmylchreest.ChatBubble D-Bus interface.
type BubbleServer struct {
	conn    *dbus.Conn
	handler Handler
	logger  *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewBubbleServer creates a new BubbleServer.
func NewBubbleServer(handler Handler, logger *slog.Logger) *BubbleServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &BubbleServer{
		handler: handler,
		logger:  logger,
	}
}

// SetHandler sets the command handler. It must be called before Start.
func (s *BubbleServer) SetHandler(handler Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = handler
}

// Start connects to the session bus and exports the bubble service.
func (s *BubbleServer) Start() error {
	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return s.StartOn(conn)
}

// StartOn exports the bubble service on an existing connection.
func (s *BubbleServer) StartOn(conn *dbus.Conn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server already running")
	}
	s.conn = conn

	if err := conn.Export(s, DBusPath, DBusInterface); err != nil {
		return fmt.Errorf("failed to export object: %w", err)
	}

	node := &introspect.Node{
		Name: DBusPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    DBusInterface,
				Methods: bubbleMethods(),
				Signals: bubbleSignals(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), DBusPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := conn.RequestName(DBusBusName, dbus.NameFlagDoNotQueue|dbus.NameFlagReplaceExisting)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken", DBusBusName)
	}

	s.running = true
	s.logger.Info("D-Bus bubble server started", "interface", DBusInterface, "path", DBusPath)
	return nil
}

// Stop releases the bus name and unexports the object.
func (s *BubbleServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if s.conn != nil {
		if _, err := s.conn.ReleaseName(DBusBusName); err != nil {
			s.logger.Warn("failed to release bus name", "error", err)
		}
		_ = s.conn.Export(nil, DBusPath, DBusInterface)
		// Don't close the connection as it's shared (SessionBus)
	}

	s.logger.Info("D-Bus bubble server stopped")
	return nil
}

// Show displays a bubble.
// D-Bus method: Show(sss) -> nothing
func (s *BubbleServer) Show(userID, displayName, avatarURL string) *dbus.Error {
	s.logger.Debug("Show called", "user_id", userID, "display_name", displayName)

	b := model.Bubble{
		Identity:    model.Identity(userID),
		DisplayName: displayName,
		AvatarURL:   avatarURL,
	}
	if err := s.handler.Show(b); err != nil {
		s.logger.Warn("show failed", "user_id", userID, "error", err)
		return toDBusError(err)
	}
	return nil
}

// Hide removes a bubble and reports whether it was shown.
// D-Bus method: Hide(s) -> b
func (s *BubbleServer) Hide(userID string) (bool, *dbus.Error) {
	s.logger.Debug("Hide called", "user_id", userID)
	return s.handler.Hide(model.Identity(userID)), nil
}

// HideAll removes every bubble.
// D-Bus method: HideAll() -> i
func (s *BubbleServer) HideAll() (int32, *dbus.Error) {
	s.logger.Debug("HideAll called")
	return int32(s.handler.HideAll()), nil
}

// List returns all active bubbles.
// D-Bus method: List() -> a(sssiix)
func (s *BubbleServer) List() ([]BubbleRecord, *dbus.Error) {
	s.logger.Debug("List called")
	infos := s.handler.List()
	records := make([]BubbleRecord, 0, len(infos))
	for _, info := range infos {
		records = append(records, NewBubbleRecord(info))
	}
	return records, nil
}

// ActiveCount returns the number of active bubbles.
// D-Bus method: ActiveCount() -> i
func (s *BubbleServer) ActiveCount() (int32, *dbus.Error) {
	return int32(s.handler.ActiveCount()), nil
}

// OverlayPermitted reports whether bubbles can currently be shown.
// D-Bus method: OverlayPermitted() -> b
func (s *BubbleServer) OverlayPermitted() (bool, *dbus.Error) {
	return s.handler.OverlayPermitted(), nil
}

// bubbleMethods returns the D-Bus method introspection data.
func bubbleMethods() []introspect.Method {
	return []introspect.Method{
		{
			Name: "Show",
			Args: []introspect.Arg{
				{Name: "user_id", Type: "s", Direction: "in"},
				{Name: "display_name", Type: "s", Direction: "in"},
				{Name: "avatar_url", Type: "s", Direction: "in"},
			},
		},
		{
			Name: "Hide",
			Args: []introspect.Arg{
				{Name: "user_id", Type: "s", Direction: "in"},
				{Name: "removed", Type: "b", Direction: "out"},
			},
		},
		{
			Name: "HideAll",
			Args: []introspect.Arg{
				{Name: "removed", Type: "i", Direction: "out"},
			},
		},
		{
			Name: "List",
			Args: []introspect.Arg{
				{Name: "sessions", Type: "a(sssiix)", Direction: "out"},
			},
		},
		{
			Name: "ActiveCount",
			Args: []introspect.Arg{
				{Name: "count", Type: "i", Direction: "out"},
			},
		},
		{
			Name: "OverlayPermitted",
			Args: []introspect.Arg{
				{Name: "permitted", Type: "b", Direction: "out"},
			},
		},
	}
}

// bubbleSignals returns the D-Bus signal introspection data.
func bubbleSignals() []introspect.Signal {
	return []introspect.Signal{
		{
			Name: SignalBubbleClicked,
			Args: []introspect.Arg{
				{Name: "user_id", Type: "s"},
				{Name: "display_name", Type: "s"},
				{Name: "avatar_url", Type: "s"},
			},
		},
		{
			Name: SignalBubbleClosed,
			Args: []introspect.Arg{
				{Name: "user_id", Type: "s"},
				{Name: "reason", Type: "s"},
			},
		},
		{
			Name: SignalTeardown,
		},
	}
}
