package model

import (
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBubbleValidate(t *testing.T) {
	tests := []struct {
		name    string
		bubble  Bubble
		wantErr error
	}{
		{"valid", Bubble{Identity: "u1", DisplayName: "Alice"}, nil},
		{"empty identity", Bubble{DisplayName: "Alice"}, ErrEmptyIdentity},
		{"whitespace identity", Bubble{Identity: "  "}, ErrEmptyIdentity},
		{"name optional", Bubble{Identity: "u2"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.bubble.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestBubbleInitials(t *testing.T) {
	tests := []struct {
		bubble   Bubble
		expected string
	}{
		{Bubble{Identity: "u1", DisplayName: "alice cooper"}, "AC"},
		{Bubble{Identity: "u1", DisplayName: "Bob"}, "B"},
		{Bubble{Identity: "u1", DisplayName: "Anna Maria Smith"}, "AM"},
		{Bubble{Identity: "zed"}, "Z"},
		{Bubble{Identity: "u1", DisplayName: "élodie"}, "É"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.bubble.Initials())
		})
	}
}

func TestPositionArithmetic(t *testing.T) {
	p := Position{X: 50, Y: 200}
	assert.Equal(t, Position{X: 60, Y: 190}, p.Add(Position{X: 10, Y: -10}))
	assert.Equal(t, Position{X: 40, Y: 200}, p.Sub(Position{X: 10}))
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "clicked", EventClicked.String())
	assert.Equal(t, "closed", EventClosed.String())
	assert.Equal(t, "unknown", EventKind(42).String())
}

func TestNewEvents(t *testing.T) {
	b := Bubble{Identity: "u1", DisplayName: "A"}

	click := NewClickEvent(b)
	assert.Equal(t, EventClicked, click.Kind)
	assert.Equal(t, b, click.Bubble)
	_, err := ulid.Parse(click.ID)
	require.NoError(t, err)

	closed := NewCloseEvent(b, CloseReasonDismissed)
	assert.Equal(t, EventClosed, closed.Kind)
	assert.Equal(t, CloseReasonDismissed, closed.Reason)
	assert.NotEqual(t, click.ID, closed.ID)
}
