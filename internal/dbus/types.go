package dbus

import (
	"errors"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/chatbubble/internal/model"
	"github.com/jmylchreest/chatbubble/internal/overlay"
)

const (
	// DBusInterface is the bubble service interface name.
	DBusInterface = "io.github.jmylchreest.ChatBubble"
	// DBusPath is the bubble service object path.
	DBusPath = "/io/github/jmylchreest/ChatBubble"
	// DBusBusName is the bus name to claim.
	DBusBusName = "io.github.jmylchreest.ChatBubble"
)

// Error names returned by the bubble service.
const (
	ErrorOverlayDenied   = DBusInterface + ".Error.OverlayDenied"
	ErrorPlatformFailure = DBusInterface + ".Error.PlatformFailure"
	ErrorInvalidArgs     = DBusInterface + ".Error.InvalidArgs"
	ErrorFailed          = DBusInterface + ".Error.Failed"
)

// Signal member names.
const (
	SignalBubbleClicked = "BubbleClicked"
	SignalBubbleClosed  = "BubbleClosed"
	SignalTeardown      = "Teardown"
)

// BubbleRecord is the wire form of an active bubble, signature (sssiix).
type BubbleRecord struct {
	UserID      string
	DisplayName string
	AvatarURL   string
	X           int32
	Y           int32
	CreatedAt   int64 // Unix seconds
}

// NewBubbleRecord converts a session snapshot to its wire form.
func NewBubbleRecord(info model.SessionInfo) BubbleRecord {
	return BubbleRecord{
		UserID:      string(info.Bubble.Identity),
		DisplayName: info.Bubble.DisplayName,
		AvatarURL:   info.Bubble.AvatarURL,
		X:           int32(info.Position.X),
		Y:           int32(info.Position.Y),
		CreatedAt:   info.CreatedAt.Unix(),
	}
}

// SessionInfo converts the record back to a session snapshot.
// The session ID is not carried on the wire.
func (r BubbleRecord) SessionInfo() model.SessionInfo {
	return model.SessionInfo{
		Bubble: model.Bubble{
			Identity:    model.Identity(r.UserID),
			DisplayName: r.DisplayName,
			AvatarURL:   r.AvatarURL,
		},
		Position:  model.Position{X: int(r.X), Y: int(r.Y)},
		CreatedAt: time.Unix(r.CreatedAt, 0),
	}
}

// toDBusError maps a Show failure onto a named D-Bus error.
func toDBusError(err error) *dbus.Error {
	name := ErrorFailed
	switch {
	case errors.Is(err, model.ErrEmptyIdentity):
		name = ErrorInvalidArgs
	case errors.Is(err, overlay.ErrOverlayDenied):
		name = ErrorOverlayDenied
	case errors.Is(err, overlay.ErrPlatformFailure):
		name = ErrorPlatformFailure
	}
	return dbus.NewError(name, []interface{}{err.Error()})
}

// fromDBusError maps a named D-Bus error back onto the local sentinels so
// callers can use errors.Is across the bus.
func fromDBusError(err error) error {
	var dbusErr dbus.Error
	if !errors.As(err, &dbusErr) {
		var ptr *dbus.Error
		if !errors.As(err, &ptr) || ptr == nil {
			return err
		}
		dbusErr = *ptr
	}

	switch dbusErr.Name {
	case ErrorOverlayDenied:
		return &overlay.Error{Op: "show", Kind: overlay.ErrOverlayDenied, Cause: err}
	case ErrorPlatformFailure:
		return &overlay.Error{Op: "show", Kind: overlay.ErrPlatformFailure, Cause: err}
	case ErrorInvalidArgs:
		return errors.Join(model.ErrEmptyIdentity, err)
	}
	return err
}

// SignalKind is the kind of a signal emitted by the bubble service.
type SignalKind int

const (
	// SignalKindClicked is a BubbleClicked signal.
	SignalKindClicked SignalKind = iota
	// SignalKindClosed is a BubbleClosed signal.
	SignalKindClosed
	// SignalKindTeardown is a Teardown signal.
	SignalKindTeardown
)

// String returns the string representation of the signal kind.
func (k SignalKind) String() string {
	switch k {
	case SignalKindClicked:
		return "clicked"
	case SignalKindClosed:
		return "closed"
	case SignalKindTeardown:
		return "teardown"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k SignalKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Signal is a decoded bubble service signal.
type Signal struct {
	Kind   SignalKind        `json:"kind" yaml:"kind"`
	Bubble model.Bubble      `json:"bubble" yaml:"bubble"`
	Reason model.CloseReason `json:"reason,omitempty" yaml:"reason,omitempty"`
	At     time.Time         `json:"at" yaml:"at"`
}

// ParseSignal decodes a raw bus signal. It reports false for signals that
// are not from the bubble service or are malformed.
func ParseSignal(sig *dbus.Signal) (Signal, bool) {
	if sig == nil || sig.Path != DBusPath {
		return Signal{}, false
	}

	at := time.Now()
	switch sig.Name {
	case DBusInterface + "." + SignalBubbleClicked:
		if len(sig.Body) != 3 {
			return Signal{}, false
		}
		id, ok1 := sig.Body[0].(string)
		name, ok2 := sig.Body[1].(string)
		avatar, ok3 := sig.Body[2].(string)
		if !ok1 || !ok2 || !ok3 {
			return Signal{}, false
		}
		return Signal{
			Kind:   SignalKindClicked,
			Bubble: model.Bubble{Identity: model.Identity(id), DisplayName: name, AvatarURL: avatar},
			At:     at,
		}, true

	case DBusInterface + "." + SignalBubbleClosed:
		if len(sig.Body) != 2 {
			return Signal{}, false
		}
		id, ok1 := sig.Body[0].(string)
		reason, ok2 := sig.Body[1].(string)
		if !ok1 || !ok2 {
			return Signal{}, false
		}
		return Signal{
			Kind:   SignalKindClosed,
			Bubble: model.Bubble{Identity: model.Identity(id)},
			Reason: model.CloseReason(reason),
			At:     at,
		}, true

	case DBusInterface + "." + SignalTeardown:
		return Signal{Kind: SignalKindTeardown, At: at}, true
	}

	return Signal{}, false
}
