package gesture

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jmylchreest/chatbubble/internal/model"
)

// feedAll runs samples through a classifier and counts the resulting effects.
func feedAll(c *Classifier, window model.Position, samples ...Sample) (taps int, moves []model.Position) {
	for _, s := range samples {
		for _, e := range c.Feed(s, window) {
			switch e.Kind {
			case EffectTap:
				taps++
			case EffectReposition:
				moves = append(moves, e.Position)
			}
		}
	}
	return taps, moves
}

func TestClassifier_Sequences(t *testing.T) {
	origin := model.Position{X: 50, Y: 200}

	tests := []struct {
		name      string
		samples   []Sample
		wantTaps  int
		wantMoves []model.Position
	}{
		{
			name:     "small move is a tap",
			samples:  []Sample{Down(0, 0), Move(3, 3), Up(3, 3)},
			wantTaps: 1,
		},
		{
			name:      "large horizontal move is a drag",
			samples:   []Sample{Down(0, 0), Move(50, 0), Up(50, 0)},
			wantMoves: []model.Position{{X: 100, Y: 200}},
		},
		{
			name:     "press and release without motion is a tap",
			samples:  []Sample{Down(10, 10), Up(10, 10)},
			wantTaps: 1,
		},
		{
			name:     "exactly the threshold is still a tap",
			samples:  []Sample{Down(0, 0), Move(10, -10), Up(10, -10)},
			wantTaps: 1,
		},
		{
			name:      "vertical drag past threshold",
			samples:   []Sample{Down(5, 5), Move(5, -6), Up(5, -6)},
			wantMoves: []model.Position{{X: 50, Y: 189}},
		},
		{
			name:     "many small moves stay a tap",
			samples:  []Sample{Down(0, 0), Move(1, 1), Move(4, -2), Move(-7, 9), Move(0, 0), Up(0, 0)},
			wantTaps: 1,
		},
		{
			name:    "drag then return near origin is not a tap",
			samples: []Sample{Down(0, 0), Move(30, 30), Move(2, 2), Up(2, 2)},
			wantMoves: []model.Position{
				{X: 80, Y: 230},
			},
		},
		{
			name:    "move and up without down are ignored",
			samples: []Sample{Move(100, 100), Up(100, 100)},
		},
		{
			name:     "two taps in a row",
			samples:  []Sample{Down(0, 0), Up(0, 0), Down(1, 1), Up(1, 1)},
			wantTaps: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClassifier(DefaultThreshold)
			taps, moves := feedAll(c, origin, tt.samples...)
			assert.Equal(t, tt.wantTaps, taps)
			assert.Equal(t, tt.wantMoves, moves)
		})
	}
}

func TestClassifier_DragFollowsPointer(t *testing.T) {
	c := NewClassifier(DefaultThreshold)
	origin := model.Position{X: 0, Y: 0}

	_, moves := feedAll(c, origin, Down(100, 100), Move(120, 100), Move(140, 110), Move(160, 130), Up(160, 130))
	assert.Equal(t, []model.Position{
		{X: 20, Y: 0},
		{X: 40, Y: 10},
		{X: 60, Y: 30},
	}, moves)
}

func TestClassifier_DownResetsDraggedFlag(t *testing.T) {
	c := NewClassifier(DefaultThreshold)
	window := model.Position{}

	taps, moves := feedAll(c, window, Down(0, 0), Move(50, 50))
	assert.Zero(t, taps)
	assert.Len(t, moves, 1)

	// A new press without a release in between starts a fresh gesture.
	taps, moves = feedAll(c, window, Down(0, 0), Up(0, 0))
	assert.Equal(t, 1, taps)
	assert.Empty(t, moves)
}

func TestClassifier_OriginReadAtDown(t *testing.T) {
	c := NewClassifier(DefaultThreshold)

	c.Feed(Down(0, 0), model.Position{X: 10, Y: 10})
	// The window position passed with later samples is ignored.
	effects := c.Feed(Move(20, 0), model.Position{X: 999, Y: 999})
	assert.Equal(t, []Effect{{Kind: EffectReposition, Position: model.Position{X: 30, Y: 10}}}, effects)
}

func TestClassifier_Threshold(t *testing.T) {
	assert.Equal(t, DefaultThreshold, NewClassifier(0).Threshold())
	assert.Equal(t, DefaultThreshold, NewClassifier(-3).Threshold())

	c := NewClassifier(40)
	assert.Equal(t, 40, c.Threshold())

	taps, moves := feedAll(c, model.Position{}, Down(0, 0), Move(30, 0), Up(30, 0))
	assert.Equal(t, 1, taps)
	assert.Empty(t, moves)

	c.SetThreshold(5)
	taps, moves = feedAll(c, model.Position{}, Down(0, 0), Move(6, 0), Up(6, 0))
	assert.Zero(t, taps)
	assert.Len(t, moves, 1)
}

func TestClassifier_Reset(t *testing.T) {
	c := NewClassifier(DefaultThreshold)
	c.Feed(Down(0, 0), model.Position{})
	c.Reset()
	assert.Empty(t, c.Feed(Up(0, 0), model.Position{}))
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "down", PhaseDown.String())
	assert.Equal(t, "move", PhaseMove.String())
	assert.Equal(t, "up", PhaseUp.String())
	assert.Equal(t, "unknown", Phase(9).String())
}
