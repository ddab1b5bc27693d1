// Package model defines the core data structures for chatbubble.
package model

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Identity uniquely identifies a peer bubble (the host's userId).
// It is opaque to the daemon and immutable for the lifetime of a session.
type Identity string

// Position is an absolute placement relative to the top-left of the available surface.
type Position struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Add returns p offset by d.
func (p Position) Add(d Position) Position {
	return Position{X: p.X + d.X, Y: p.Y + d.Y}
}

// Sub returns p - o.
func (p Position) Sub(o Position) Position {
	return Position{X: p.X - o.X, Y: p.Y - o.Y}
}

// Bubble is the content shown by a bubble window.
// AvatarURL is passed through untouched; image loading is someone else's job.
type Bubble struct {
	Identity    Identity `json:"user_id" yaml:"user_id"`
	DisplayName string   `json:"display_name" yaml:"display_name"`
	AvatarURL   string   `json:"avatar_url,omitempty" yaml:"avatar_url,omitempty"`
}

// ErrEmptyIdentity is returned when a bubble has no userId.
var ErrEmptyIdentity = errors.New("user_id cannot be empty")

// Validate checks that the bubble has all required fields.
func (b Bubble) Validate() error {
	if strings.TrimSpace(string(b.Identity)) == "" {
		return ErrEmptyIdentity
	}
	return nil
}

// Initials returns up to two upper-case initials of the display name,
// falling back to the identity when the name is empty.
func (b Bubble) Initials() string {
	name := strings.TrimSpace(b.DisplayName)
	if name == "" {
		name = strings.TrimSpace(string(b.Identity))
	}

	var initials []rune
	for _, word := range strings.Fields(name) {
		for _, r := range word {
			initials = append(initials, r)
			break
		}
		if len(initials) == 2 {
			break
		}
	}
	return strings.ToUpper(string(initials))
}

// SessionInfo is a read-only snapshot of an active bubble session.
type SessionInfo struct {
	SessionID string    `json:"session_id" yaml:"session_id"`
	Bubble    Bubble    `json:"bubble" yaml:"bubble"`
	Position  Position  `json:"position" yaml:"position"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// EventKind distinguishes the events relayed to the host.
type EventKind int

const (
	// EventClicked is emitted when a bubble is tapped.
	EventClicked EventKind = iota
	// EventClosed is emitted when a bubble is removed.
	EventClosed
)

// String returns the string representation of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventClicked:
		return "clicked"
	case EventClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// CloseReason says why a bubble went away.
type CloseReason string

const (
	// CloseReasonDismissed means the user pressed the bubble's close affordance.
	CloseReasonDismissed CloseReason = "dismissed"
	// CloseReasonHidden means the host asked for the bubble to be hidden.
	CloseReasonHidden CloseReason = "hidden"
	// CloseReasonCleared means the bubble went away through hide-all.
	CloseReasonCleared CloseReason = "cleared"
	// CloseReasonShutdown means the daemon is shutting down.
	CloseReasonShutdown CloseReason = "shutdown"
)

// Event is an occurrence relayed to the host application.
type Event struct {
	ID     string      `json:"id" yaml:"id"`
	Kind   EventKind   `json:"-" yaml:"-"`
	Bubble Bubble      `json:"bubble" yaml:"bubble"`
	Reason CloseReason `json:"reason,omitempty" yaml:"reason,omitempty"`
	At     time.Time   `json:"at" yaml:"at"`
}

// NewID returns a fresh ULID string.
func NewID() string {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return fmt.Sprintf("%026d", time.Now().UnixNano())
	}
	return id.String()
}

// NewClickEvent builds a click event for b.
func NewClickEvent(b Bubble) Event {
	return Event{ID: NewID(), Kind: EventClicked, Bubble: b, At: time.Now()}
}

// NewCloseEvent builds a close event for b.
func NewCloseEvent(b Bubble, reason CloseReason) Event {
	return Event{ID: NewID(), Kind: EventClosed, Bubble: b, Reason: reason, At: time.Now()}
}
