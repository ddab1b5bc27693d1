package display

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPointerGate_PlainDrag(t *testing.T) {
	var g pointerGate
	assert.True(t, g.begin())
	assert.True(t, g.update())
	assert.True(t, g.end())
	assert.False(t, g.controlReleased())
}

func TestPointerGate_PressOnControl(t *testing.T) {
	var g pointerGate

	// Capture phase reaches the control before the window's drag gesture.
	g.controlPressed()
	assert.False(t, g.begin())
	assert.False(t, g.update())

	// The control is released before the drag gesture ends.
	assert.True(t, g.controlReleased())
	assert.False(t, g.update())
	assert.False(t, g.end())

	// The next sequence is forwarded again.
	assert.True(t, g.begin())
	assert.True(t, g.end())
}

func TestPointerGate_ControlReleasedAfterDragEnd(t *testing.T) {
	var g pointerGate
	g.controlPressed()
	assert.False(t, g.begin())
	assert.False(t, g.end())
	assert.True(t, g.controlReleased())
	assert.True(t, g.begin())
}
