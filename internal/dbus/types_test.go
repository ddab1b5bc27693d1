package dbus

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/chatbubble/internal/model"
	"github.com/jmylchreest/chatbubble/internal/overlay"
)

func TestSignalKindString(t *testing.T) {
	tests := []struct {
		kind     SignalKind
		expected string
	}{
		{SignalKindClicked, "clicked"},
		{SignalKindClosed, "closed"},
		{SignalKindTeardown, "teardown"},
		{SignalKind(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.kind.String())
		})
	}
}

func TestBubbleRecord(t *testing.T) {
	created := time.Unix(1700000000, 0)
	info := model.SessionInfo{
		SessionID: "01HXYZ",
		Bubble:    model.Bubble{Identity: "u1", DisplayName: "Alice", AvatarURL: "file:///a.png"},
		Position:  model.Position{X: 50, Y: 200},
		CreatedAt: created,
	}

	r := NewBubbleRecord(info)
	assert.Equal(t, BubbleRecord{
		UserID:      "u1",
		DisplayName: "Alice",
		AvatarURL:   "file:///a.png",
		X:           50,
		Y:           200,
		CreatedAt:   1700000000,
	}, r)

	back := r.SessionInfo()
	assert.Equal(t, info.Bubble, back.Bubble)
	assert.Equal(t, info.Position, back.Position)
	assert.True(t, created.Equal(back.CreatedAt))
	assert.Empty(t, back.SessionID)

	assert.Equal(t, "(sssiix)", dbus.SignatureOf(r).String())
}

func TestToDBusError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"empty identity", model.ErrEmptyIdentity, ErrorInvalidArgs},
		{"denied", overlay.Denied("create", "u1", nil), ErrorOverlayDenied},
		{"platform", overlay.Failure("create", "u1", errors.New("x")), ErrorPlatformFailure},
		{"other", errors.New("boom"), ErrorFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toDBusError(tt.err)
			assert.Equal(t, tt.want, got.Name)
			require.Len(t, got.Body, 1)
			assert.Equal(t, tt.err.Error(), got.Body[0])
		})
	}
}

func TestFromDBusError(t *testing.T) {
	denied := dbus.Error{Name: ErrorOverlayDenied, Body: []interface{}{"no"}}
	assert.ErrorIs(t, fromDBusError(denied), overlay.ErrOverlayDenied)

	platform := dbus.NewError(ErrorPlatformFailure, []interface{}{"later"})
	assert.ErrorIs(t, fromDBusError(platform), overlay.ErrPlatformFailure)

	invalid := dbus.Error{Name: ErrorInvalidArgs}
	assert.ErrorIs(t, fromDBusError(invalid), model.ErrEmptyIdentity)

	other := errors.New("plain")
	assert.Equal(t, other, fromDBusError(other))
}

func TestParseSignal(t *testing.T) {
	tests := []struct {
		name   string
		sig    *dbus.Signal
		wantOK bool
		want   Signal
	}{
		{
			name: "clicked",
			sig: &dbus.Signal{
				Path: DBusPath,
				Name: DBusInterface + ".BubbleClicked",
				Body: []interface{}{"u1", "Alice", "file:///a.png"},
			},
			wantOK: true,
			want: Signal{
				Kind:   SignalKindClicked,
				Bubble: model.Bubble{Identity: "u1", DisplayName: "Alice", AvatarURL: "file:///a.png"},
			},
		},
		{
			name: "closed",
			sig: &dbus.Signal{
				Path: DBusPath,
				Name: DBusInterface + ".BubbleClosed",
				Body: []interface{}{"u2", "dismissed"},
			},
			wantOK: true,
			want: Signal{
				Kind:   SignalKindClosed,
				Bubble: model.Bubble{Identity: "u2"},
				Reason: model.CloseReasonDismissed,
			},
		},
		{
			name:   "teardown",
			sig:    &dbus.Signal{Path: DBusPath, Name: DBusInterface + ".Teardown"},
			wantOK: true,
			want:   Signal{Kind: SignalKindTeardown},
		},
		{
			name: "wrong path",
			sig:  &dbus.Signal{Path: "/other", Name: DBusInterface + ".Teardown"},
		},
		{
			name: "malformed body",
			sig: &dbus.Signal{
				Path: DBusPath,
				Name: DBusInterface + ".BubbleClicked",
				Body: []interface{}{"u1", uint32(3)},
			},
		},
		{
			name: "unrelated member",
			sig:  &dbus.Signal{Path: DBusPath, Name: "org.freedesktop.DBus.NameAcquired"},
		},
		{
			name: "nil",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseSignal(tt.sig)
			assert.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				return
			}
			assert.False(t, got.At.IsZero())
			got.At = time.Time{}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSignalJSON(t *testing.T) {
	s := Signal{
		Kind:   SignalKindClicked,
		Bubble: model.Bubble{Identity: "u1", DisplayName: "A"},
		At:     time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"kind": "clicked",
		"bubble": {"user_id": "u1", "display_name": "A"},
		"at": "2026-01-02T03:04:05Z"
	}`, string(data))
}

func TestIntrospectionCoversHandlers(t *testing.T) {
	names := map[string]bool{}
	for _, m := range bubbleMethods() {
		names[m.Name] = true
	}
	for _, want := range []string{"Show", "Hide", "HideAll", "List", "ActiveCount", "OverlayPermitted"} {
		assert.True(t, names[want], want)
	}

	signals := map[string]bool{}
	for _, s := range bubbleSignals() {
		signals[s.Name] = true
	}
	assert.True(t, signals[SignalBubbleClicked])
	assert.True(t, signals[SignalBubbleClosed])
	assert.True(t, signals[SignalTeardown])
}
