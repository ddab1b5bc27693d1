package overlay

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/chatbubble/internal/model"
)

func TestError(t *testing.T) {
	cause := errors.New("wl_display gone")

	tests := []struct {
		name      string
		err       *Error
		wantKind  error
		wantMsg   string
		retriable bool
	}{
		{
			name:     "denied",
			err:      Denied("create", "u1", nil),
			wantKind: ErrOverlayDenied,
			wantMsg:  "create u1: overlay permission denied",
		},
		{
			name:      "failure with cause",
			err:       Failure("create", "u2", cause),
			wantKind:  ErrPlatformFailure,
			wantMsg:   "create u2: platform failure: wl_display gone",
			retriable: true,
		},
		{
			name:      "no identity",
			err:       Failure("destroy", "", nil),
			wantKind:  ErrPlatformFailure,
			wantMsg:   "destroy: platform failure",
			retriable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
			assert.ErrorIs(t, tt.err, tt.wantKind)
			assert.Equal(t, tt.retriable, IsRetriable(tt.err))

			var target *Error
			require.ErrorAs(t, tt.err, &target)
			assert.Equal(t, tt.err.Identity, target.Identity)
		})
	}

	assert.ErrorIs(t, Failure("create", "u2", cause), cause)
	assert.False(t, IsRetriable(errors.New("other")))
}

func TestPermissionFunc(t *testing.T) {
	granted := false
	p := PermissionFunc(func() bool { return granted })
	assert.False(t, p.OverlayPermitted())
	granted = true
	assert.True(t, p.OverlayPermitted())
	assert.True(t, AlwaysPermitted.OverlayPermitted())
}

func TestMemoryController(t *testing.T) {
	m := NewMemoryController()
	b := model.Bubble{Identity: "u1", DisplayName: "A"}

	h, err := m.Create(b, model.Position{X: 50, Y: 200})
	require.NoError(t, err)
	assert.NotZero(t, h)
	assert.Equal(t, 1, m.Count())

	require.NoError(t, m.Move(h, model.Position{X: 60, Y: 210}))
	w, ok := m.Window(h)
	require.True(t, ok)
	assert.Equal(t, model.Position{X: 60, Y: 210}, w.Position)
	assert.Equal(t, 1, w.Moves)
	assert.Equal(t, b, w.Bubble)

	require.NoError(t, m.Destroy(h))
	assert.Zero(t, m.Count())

	// Destroy and Move on a gone handle are no-ops.
	assert.NoError(t, m.Destroy(h))
	assert.NoError(t, m.Move(h, model.Position{}))
	assert.Equal(t, 1, m.Destroyed())
}

func TestMemoryController_FailureInjection(t *testing.T) {
	m := NewMemoryController()

	m.FailCreate(Denied("create", "u1", nil))
	_, err := m.Create(model.Bubble{Identity: "u1"}, model.Position{})
	assert.ErrorIs(t, err, ErrOverlayDenied)
	assert.Zero(t, m.Count())

	m.FailCreate(nil)
	h, err := m.Create(model.Bubble{Identity: "u1"}, model.Position{})
	require.NoError(t, err)

	m.FailDestroy(h, errors.New("stuck"))
	err = m.Destroy(h)
	assert.ErrorIs(t, err, ErrPlatformFailure)
	assert.Zero(t, m.Count(), "window is removed even when destroy reports an error")
}

func TestMemoryController_WindowsOrdered(t *testing.T) {
	m := NewMemoryController()
	for _, id := range []model.Identity{"a", "b", "c"} {
		_, err := m.Create(model.Bubble{Identity: id}, model.Position{})
		require.NoError(t, err)
	}

	windows := m.Windows()
	require.Len(t, windows, 3)
	assert.Equal(t, model.Identity("a"), windows[0].Bubble.Identity)
	assert.Equal(t, model.Identity("c"), windows[2].Bubble.Identity)
}

// manualPost queues work until run is called.
type manualPost struct {
	queue []func()
}

func (p *manualPost) post(fn func()) {
	p.queue = append(p.queue, fn)
}

func (p *manualPost) run() {
	q := p.queue
	p.queue = nil
	for _, fn := range q {
		fn()
	}
}

func TestCoalescer_LastWriteWins(t *testing.T) {
	inner := NewMemoryController()
	p := &manualPost{}
	c := NewCoalescer(inner, p.post, nil)

	h, err := c.Create(model.Bubble{Identity: "u1"}, model.Position{})
	require.NoError(t, err)

	for i := 1; i <= 100; i++ {
		require.NoError(t, c.Move(h, model.Position{X: i, Y: i * 2}))
	}
	assert.Len(t, p.queue, 1, "one flush scheduled for a burst")
	assert.Equal(t, 1, c.Pending())

	p.run()

	w, ok := inner.Window(h)
	require.True(t, ok)
	assert.Equal(t, model.Position{X: 100, Y: 200}, w.Position)
	assert.Equal(t, 1, w.Moves)
	assert.Zero(t, c.Pending())

	// A new burst schedules a new flush.
	require.NoError(t, c.Move(h, model.Position{X: 1, Y: 1}))
	assert.Len(t, p.queue, 1)
}

func TestCoalescer_DestroyDropsPendingMove(t *testing.T) {
	inner := NewMemoryController()
	p := &manualPost{}
	c := NewCoalescer(inner, p.post, nil)

	h1, err := c.Create(model.Bubble{Identity: "u1"}, model.Position{})
	require.NoError(t, err)
	h2, err := c.Create(model.Bubble{Identity: "u2"}, model.Position{})
	require.NoError(t, err)

	require.NoError(t, c.Move(h1, model.Position{X: 5}))
	require.NoError(t, c.Move(h2, model.Position{X: 7}))
	require.NoError(t, c.Destroy(h1))
	assert.Equal(t, 1, c.Pending())

	p.run()

	_, ok := inner.Window(h1)
	assert.False(t, ok)
	w, ok := inner.Window(h2)
	require.True(t, ok)
	assert.Equal(t, 7, w.Position.X)
}
