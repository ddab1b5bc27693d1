// Package session implements the bubble session manager: the owner of all
// active bubbles, their windows and the gestures performed on them.
package session

import (
	"time"

	"github.com/jmylchreest/chatbubble/internal/gesture"
	"github.com/jmylchreest/chatbubble/internal/model"
	"github.com/jmylchreest/chatbubble/internal/overlay"
)

// Placement controls where new bubbles appear and how drags are detected.
type Placement struct {
	// Spawn is where the first bubble is created.
	Spawn model.Position
	// Stagger offsets each new bubble diagonally by this many pixels per
	// already active bubble. Zero stacks them all at Spawn.
	Stagger int
	// DragThreshold is passed to each bubble's gesture classifier.
	DragThreshold int
}

// DefaultPlacement returns the stock placement.
func DefaultPlacement() Placement {
	return Placement{
		Spawn:         model.Position{X: 50, Y: 200},
		DragThreshold: gesture.DefaultThreshold,
	}
}

// spawnAt returns the creation position given n bubbles already active.
func (p Placement) spawnAt(n int) model.Position {
	off := p.Stagger * n
	return p.Spawn.Add(model.Position{X: off, Y: off})
}

// Session is one active bubble. It is only touched on the manager's owner.
type Session struct {
	ID        string
	Bubble    model.Bubble
	Position  model.Position
	Handle    overlay.Handle
	CreatedAt time.Time

	classifier *gesture.Classifier
}

// Info returns a read-only snapshot of s.
func (s *Session) Info() model.SessionInfo {
	return model.SessionInfo{
		SessionID: s.ID,
		Bubble:    s.Bubble,
		Position:  s.Position,
		CreatedAt: s.CreatedAt,
	}
}
