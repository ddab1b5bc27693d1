package dbus

import (
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/chatbubble/internal/model"
)

// EmitBubbleClicked emits the BubbleClicked signal.
func (s *BubbleServer) EmitBubbleClicked(b model.Bubble) error {
	if s.conn == nil {
		return fmt.Errorf("not connected to D-Bus")
	}

	err := s.conn.Emit(DBusPath, DBusInterface+"."+SignalBubbleClicked,
		string(b.Identity), b.DisplayName, b.AvatarURL)
	if err != nil {
		return fmt.Errorf("failed to emit BubbleClicked signal: %w", err)
	}

	s.logger.Debug("emitted BubbleClicked signal", "user_id", b.Identity)
	return nil
}

// EmitBubbleClosed emits the BubbleClosed signal.
func (s *BubbleServer) EmitBubbleClosed(id model.Identity, reason model.CloseReason) error {
	if s.conn == nil {
		return fmt.Errorf("not connected to D-Bus")
	}

	err := s.conn.Emit(DBusPath, DBusInterface+"."+SignalBubbleClosed, string(id), string(reason))
	if err != nil {
		return fmt.Errorf("failed to emit BubbleClosed signal: %w", err)
	}

	s.logger.Debug("emitted BubbleClosed signal", "user_id", id, "reason", reason)
	return nil
}

// EmitTeardown emits the Teardown signal.
func (s *BubbleServer) EmitTeardown() error {
	if s.conn == nil {
		return fmt.Errorf("not connected to D-Bus")
	}

	if err := s.conn.Emit(DBusPath, DBusInterface+"."+SignalTeardown); err != nil {
		return fmt.Errorf("failed to emit Teardown signal: %w", err)
	}

	s.logger.Debug("emitted Teardown signal")
	return nil
}

// EmitEvent emits the signal matching a manager event.
func (s *BubbleServer) EmitEvent(ev model.Event) error {
	switch ev.Kind {
	case model.EventClicked:
		return s.EmitBubbleClicked(ev.Bubble)
	case model.EventClosed:
		return s.EmitBubbleClosed(ev.Bubble.Identity, ev.Reason)
	default:
		return fmt.Errorf("unknown event kind %d", ev.Kind)
	}
}

// Connection returns the underlying D-Bus connection.
func (s *BubbleServer) Connection() *dbus.Conn {
	return s.conn
}
