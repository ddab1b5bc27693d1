// Package gesture turns raw pointer samples on a bubble window into drag or tap effects.
package gesture

import (
	"github.com/jmylchreest/chatbubble/internal/model"
)

// DefaultThreshold is the displacement, in logical pixels, a pointer must
// exceed on either axis before a press becomes a drag.
const DefaultThreshold = 10

// Phase is the pointer phase of a sample.
type Phase int

const (
	// PhaseDown is a pointer press.
	PhaseDown Phase = iota
	// PhaseMove is pointer motion while pressed.
	PhaseMove
	// PhaseUp is a pointer release.
	PhaseUp
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseDown:
		return "down"
	case PhaseMove:
		return "move"
	case PhaseUp:
		return "up"
	default:
		return "unknown"
	}
}

// Sample is one pointer event in surface coordinates.
type Sample struct {
	Phase Phase
	X, Y  int
}

// Down builds a press sample.
func Down(x, y int) Sample {
	return Sample{Phase: PhaseDown, X: x, Y: y}
}

// Move builds a motion sample.
func Move(x, y int) Sample {
	return Sample{Phase: PhaseMove, X: x, Y: y}
}

// Up builds a release sample.
func Up(x, y int) Sample {
	return Sample{Phase: PhaseUp, X: x, Y: y}
}

// EffectKind is what a sample sequence asks the session to do.
type EffectKind int

const (
	// EffectReposition moves the window to Effect.Position.
	EffectReposition EffectKind = iota
	// EffectTap is a click on the bubble.
	EffectTap
)

// Effect is the outcome of feeding a sample.
type Effect struct {
	Kind     EffectKind
	Position model.Position // Only set for EffectReposition
}

// Classifier disambiguates drags from taps for one window.
// State lives only between a Down and the following Up.
// A Classifier is not safe for concurrent use; the session owner feeds it.
type Classifier struct {
	threshold int

	active      bool
	dragged     bool
	origin      model.Position // window position at Down
	originTouch model.Position // pointer position at Down
}

// NewClassifier creates a classifier with the given threshold.
// A non-positive threshold selects DefaultThreshold.
func NewClassifier(threshold int) *Classifier {
	c := &Classifier{}
	c.SetThreshold(threshold)
	return c
}

// SetThreshold changes the drag threshold. It takes effect on the next Move.
func (c *Classifier) SetThreshold(threshold int) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	c.threshold = threshold
}

// Threshold returns the current drag threshold.
func (c *Classifier) Threshold() int {
	return c.threshold
}

// Feed consumes a sample. windowPos is the current window placement and is
// only read on Down. Move and Up samples without a preceding Down are ignored.
func (c *Classifier) Feed(s Sample, windowPos model.Position) []Effect {
	touch := model.Position{X: s.X, Y: s.Y}

	switch s.Phase {
	case PhaseDown:
		c.active = true
		c.dragged = false
		c.origin = windowPos
		c.originTouch = touch
		return nil

	case PhaseMove:
		if !c.active {
			return nil
		}
		delta := touch.Sub(c.originTouch)
		if abs(delta.X) <= c.threshold && abs(delta.Y) <= c.threshold {
			return nil
		}
		c.dragged = true
		return []Effect{{Kind: EffectReposition, Position: c.origin.Add(delta)}}

	case PhaseUp:
		if !c.active {
			return nil
		}
		c.active = false
		if c.dragged {
			c.dragged = false
			return nil
		}
		return []Effect{{Kind: EffectTap}}
	}

	return nil
}

// Reset drops any in-progress gesture.
func (c *Classifier) Reset() {
	c.active = false
	c.dragged = false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
