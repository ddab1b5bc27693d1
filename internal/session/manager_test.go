package session

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/chatbubble/internal/gesture"
	"github.com/jmylchreest/chatbubble/internal/model"
	"github.com/jmylchreest/chatbubble/internal/overlay"
	"github.com/jmylchreest/chatbubble/internal/presence"
)

// recorder captures presence text, events and teardowns.
type recorder struct {
	mu        sync.Mutex
	presence  []string
	events    []model.Event
	teardowns atomic.Int32
	shown     []model.SessionInfo
}

func (r *recorder) Update(count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.presence = append(r.presence, presence.Summary(count))
}

func (r *recorder) lastPresence() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.presence) == 0 {
		return ""
	}
	return r.presence[len(r.presence)-1]
}

func (r *recorder) onEvent(ev model.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) eventsOf(kind model.EventKind) []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Event
	for _, ev := range r.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

type fixture struct {
	m    *Manager
	ctrl *overlay.MemoryController
	rec  *recorder
}

func newFixture(t *testing.T, mutate ...func(*Options)) *fixture {
	t.Helper()

	rec := &recorder{}
	ctrl := overlay.NewMemoryController()
	opts := Options{
		Controller: ctrl,
		Presence:   rec,
		OnTeardown: func() { rec.teardowns.Add(1) },
		OnShown: func(info model.SessionInfo) {
			rec.mu.Lock()
			defer rec.mu.Unlock()
			rec.shown = append(rec.shown, info)
		},
	}
	for _, fn := range mutate {
		fn(&opts)
	}

	m, err := NewManager(opts)
	require.NoError(t, err)
	m.Events().Subscribe(rec.onEvent)
	t.Cleanup(m.Close)

	return &fixture{m: m, ctrl: ctrl, rec: rec}
}

// settle waits until pointer input already posted and any move flushes it
// scheduled have run on the owner.
func (f *fixture) settle() {
	f.m.ActiveCount()
	f.m.ActiveCount()
}

// drain waits until effects already handed to the delivery goroutine ran.
func (f *fixture) drain() {
	done := make(chan struct{})
	f.m.delivery.Post(func() { close(done) })
	<-done
}

func bubble(id, name string) model.Bubble {
	return model.Bubble{Identity: model.Identity(id), DisplayName: name}
}

func TestNewManager_RequiresController(t *testing.T) {
	_, err := NewManager(Options{})
	assert.Error(t, err)
}

func TestShow_Idempotent(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.m.Show(bubble("u1", "A")))
	require.NoError(t, f.m.Show(bubble("u1", "A")))
	require.NoError(t, f.m.Show(bubble("u1", "changed")))

	assert.Equal(t, 1, f.m.ActiveCount())
	assert.Equal(t, 1, f.ctrl.Count())

	info, err := f.m.Lookup("u1")
	require.NoError(t, err)
	assert.Equal(t, "A", info.Bubble.DisplayName)
	assert.Equal(t, model.Position{X: 50, Y: 200}, info.Position)
	assert.NotEmpty(t, info.SessionID)

	f.rec.mu.Lock()
	assert.Len(t, f.rec.shown, 1)
	f.rec.mu.Unlock()
}

func TestShow_InvalidBubble(t *testing.T) {
	f := newFixture(t)

	err := f.m.Show(model.Bubble{DisplayName: "nobody"})
	assert.ErrorIs(t, err, model.ErrEmptyIdentity)
	assert.Zero(t, f.ctrl.Count())
}

func TestShow_PermissionDenied(t *testing.T) {
	var granted atomic.Bool
	f := newFixture(t, func(o *Options) {
		o.Permission = overlay.PermissionFunc(granted.Load)
	})

	err := f.m.Show(bubble("u1", "A"))
	assert.ErrorIs(t, err, overlay.ErrOverlayDenied)
	assert.Zero(t, f.ctrl.Count(), "controller is not touched without permission")
	assert.Zero(t, f.m.ActiveCount())

	granted.Store(true)
	require.NoError(t, f.m.Show(bubble("u1", "A")))
	assert.Equal(t, 1, f.m.ActiveCount())
}

func TestShow_CreateFailureLeavesStateUnchanged(t *testing.T) {
	tests := []struct {
		name     string
		injected error
		wantKind error
	}{
		{"denied by platform", overlay.Denied("create", "u1", nil), overlay.ErrOverlayDenied},
		{"platform failure", overlay.Failure("create", "u1", errors.New("no surface")), overlay.ErrPlatformFailure},
		{"untyped error becomes platform failure", errors.New("boom"), overlay.ErrPlatformFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.ctrl.FailCreate(tt.injected)

			err := f.m.Show(bubble("u1", "A"))
			assert.ErrorIs(t, err, tt.wantKind)
			assert.Zero(t, f.m.ActiveCount())
			assert.Empty(t, f.rec.lastPresence(), "presence untouched on failure")

			_, err = f.m.Lookup("u1")
			assert.ErrorIs(t, err, ErrUnknownIdentity)

			// Retry after the platform recovers.
			f.ctrl.FailCreate(nil)
			require.NoError(t, f.m.Show(bubble("u1", "A")))
			assert.Equal(t, 1, f.m.ActiveCount())
		})
	}
}

func TestHide_AbsentIsNoop(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.m.Show(bubble("u1", "A")))

	assert.False(t, f.m.Hide("ghost"))
	assert.Equal(t, 1, f.m.ActiveCount())
	assert.Zero(t, f.rec.teardowns.Load())
	assert.Empty(t, f.rec.eventsOf(model.EventClosed))
}

func TestHide_LastBubbleSignalsTeardown(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.m.Show(bubble("u1", "A")))

	assert.True(t, f.m.Hide("u1"))
	assert.Zero(t, f.m.ActiveCount())
	assert.Zero(t, f.ctrl.Count())
	assert.Equal(t, int32(1), f.rec.teardowns.Load())

	closed := f.rec.eventsOf(model.EventClosed)
	require.Len(t, closed, 1)
	assert.Equal(t, model.Identity("u1"), closed[0].Bubble.Identity)
	assert.Equal(t, model.CloseReasonHidden, closed[0].Reason)

	assert.False(t, f.m.Hide("u1"))
	assert.Equal(t, int32(1), f.rec.teardowns.Load())
}

func TestHide_DestroyFailureStillRemoves(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.m.Show(bubble("u1", "A")))

	f.ctrl.FailDestroy(f.ctrl.Windows()[0].Handle, errors.New("stuck"))
	assert.True(t, f.m.Hide("u1"))
	assert.Zero(t, f.m.ActiveCount())
}

func TestHideAll(t *testing.T) {
	for _, n := range []int{0, 1, 5} {
		t.Run(presence.Summary(n), func(t *testing.T) {
			f := newFixture(t)
			for i := 0; i < n; i++ {
				require.NoError(t, f.m.Show(bubble(string(rune('a'+i)), "")))
			}

			assert.Equal(t, n, f.m.HideAll())
			assert.Zero(t, f.m.ActiveCount())
			assert.Zero(t, f.ctrl.Count())
			assert.Equal(t, int32(1), f.rec.teardowns.Load(), "teardown always signalled")
			assert.Equal(t, "0 bubble(s) active", f.rec.lastPresence())

			closed := f.rec.eventsOf(model.EventClosed)
			assert.Len(t, closed, n)
			for _, ev := range closed {
				assert.Equal(t, model.CloseReasonCleared, ev.Reason)
			}
		})
	}
}

func TestHideAll_SweepContinuesPastFailures(t *testing.T) {
	f := newFixture(t)
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, f.m.Show(bubble(id, "")))
	}
	windows := f.ctrl.Windows()
	f.ctrl.FailDestroy(windows[0].Handle, errors.New("stuck"))
	f.ctrl.FailDestroy(windows[1].Handle, errors.New("stuck"))

	assert.Equal(t, 3, f.m.HideAll())
	assert.Zero(t, f.ctrl.Count())
	assert.Equal(t, 3, f.ctrl.Destroyed())
}

func TestScenario_TwoBubbles(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.m.Show(bubble("u1", "A")))
	require.NoError(t, f.m.Show(bubble("u2", "B")))
	assert.Equal(t, 2, f.m.ActiveCount())
	assert.Equal(t, "2 bubble(s) active", f.rec.lastPresence())

	assert.True(t, f.m.Hide("u1"))
	assert.Equal(t, 1, f.m.ActiveCount())
	assert.Equal(t, "1 bubble(s) active", f.rec.lastPresence())
	assert.Zero(t, f.rec.teardowns.Load())

	assert.Equal(t, 1, f.m.HideAll())
	assert.Zero(t, f.m.ActiveCount())
	assert.Equal(t, int32(1), f.rec.teardowns.Load())
}

func TestPointer_TapPublishesClick(t *testing.T) {
	f := newFixture(t)
	b := model.Bubble{Identity: "u1", DisplayName: "A", AvatarURL: "file:///tmp/a.png"}
	require.NoError(t, f.m.Show(b))

	f.m.Pointer("u1", gesture.Down(0, 0))
	f.m.Pointer("u1", gesture.Move(3, 3))
	f.m.Pointer("u1", gesture.Up(3, 3))
	f.settle()

	require.Eventually(t, func() bool {
		return len(f.rec.eventsOf(model.EventClicked)) == 1
	}, time.Second, 5*time.Millisecond)

	click := f.rec.eventsOf(model.EventClicked)[0]
	assert.Equal(t, b, click.Bubble)

	w := f.ctrl.Windows()[0]
	assert.Zero(t, w.Moves)
	assert.Equal(t, model.Position{X: 50, Y: 200}, w.Position)
}

func TestPointer_DragMovesWindow(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.m.Show(bubble("u1", "A")))

	f.m.Pointer("u1", gesture.Down(0, 0))
	f.m.Pointer("u1", gesture.Move(50, 0))
	f.m.Pointer("u1", gesture.Up(50, 0))
	f.settle()

	info, err := f.m.Lookup("u1")
	require.NoError(t, err)
	assert.Equal(t, model.Position{X: 100, Y: 200}, info.Position)

	w := f.ctrl.Windows()[0]
	assert.Equal(t, model.Position{X: 100, Y: 200}, w.Position)
	assert.GreaterOrEqual(t, w.Moves, 1)

	f.drain()
	assert.Empty(t, f.rec.eventsOf(model.EventClicked))
}

func TestPointer_LateSamplesAfterHide(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.m.Show(bubble("u1", "A")))

	f.m.Pointer("u1", gesture.Down(0, 0))
	f.m.Pointer("u1", gesture.Move(40, 40))
	require.True(t, f.m.Hide("u1"))

	assert.NotPanics(t, func() {
		f.m.Pointer("u1", gesture.Move(80, 80))
		f.m.Pointer("u1", gesture.Up(80, 80))
		f.settle()
	})
	assert.Zero(t, f.ctrl.Count())
	assert.Empty(t, f.rec.eventsOf(model.EventClicked))
}

func TestDismiss(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.m.Show(bubble("u1", "A")))

	f.m.Dismiss("u1")
	f.m.Dismiss("u1")

	require.Eventually(t, func() bool { return f.rec.teardowns.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, f.m.ActiveCount())
	assert.Empty(t, f.rec.eventsOf(model.EventClicked), "dismiss does not go through the click path")

	closed := f.rec.eventsOf(model.EventClosed)
	require.Len(t, closed, 1)
	assert.Equal(t, model.CloseReasonDismissed, closed[0].Reason)
}

func TestListenerMayReenterManager(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.m.Show(bubble("u1", "A")))

	reopened := make(chan error, 1)
	f.m.Events().Subscribe(func(ev model.Event) {
		if ev.Kind == model.EventClicked {
			f.m.Hide(ev.Bubble.Identity)
			reopened <- f.m.Show(bubble("u2", "B"))
		}
	})

	f.m.Pointer("u1", gesture.Down(1, 1))
	f.m.Pointer("u1", gesture.Up(1, 1))

	select {
	case err := <-reopened:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("listener did not run")
	}

	list := f.m.List()
	require.Len(t, list, 1)
	assert.Equal(t, model.Identity("u2"), list[0].Bubble.Identity)
}

func TestPublishWithoutListenerIsNotReplayed(t *testing.T) {
	f := newFixture(t)
	f.m.Events().Unsubscribe()
	require.NoError(t, f.m.Show(bubble("u1", "A")))

	f.m.Pointer("u1", gesture.Down(0, 0))
	f.m.Pointer("u1", gesture.Up(0, 0))
	f.settle()
	f.drain()

	f.m.Events().Subscribe(f.rec.onEvent)
	assert.Empty(t, f.rec.eventsOf(model.EventClicked))
}

func TestList_OrderAndStagger(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		o.Placement = Placement{Spawn: model.Position{X: 10, Y: 10}, Stagger: 20, DragThreshold: 10}
	})

	for _, id := range []string{"u1", "u2", "u3"} {
		require.NoError(t, f.m.Show(bubble(id, "")))
	}

	list := f.m.List()
	require.Len(t, list, 3)
	assert.Equal(t, model.Identity("u1"), list[0].Bubble.Identity)
	assert.Equal(t, model.Position{X: 10, Y: 10}, list[0].Position)
	assert.Equal(t, model.Position{X: 30, Y: 30}, list[1].Position)
	assert.Equal(t, model.Position{X: 50, Y: 50}, list[2].Position)
}

func TestSetPlacement_UpdatesThreshold(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.m.Show(bubble("u1", "A")))

	p := DefaultPlacement()
	p.DragThreshold = 100
	f.m.SetPlacement(p)
	assert.Equal(t, p, f.m.Placement())

	f.m.Pointer("u1", gesture.Down(0, 0))
	f.m.Pointer("u1", gesture.Move(50, 0))
	f.m.Pointer("u1", gesture.Up(50, 0))
	f.settle()

	require.Eventually(t, func() bool {
		return len(f.rec.eventsOf(model.EventClicked)) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Zero(t, f.ctrl.Windows()[0].Moves)
}

func TestClose(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.m.Show(bubble("u1", "A")))
	require.NoError(t, f.m.Show(bubble("u2", "B")))

	f.m.Close()
	f.m.Close()

	assert.Zero(t, f.ctrl.Count())
	assert.Equal(t, int32(1), f.rec.teardowns.Load())
	closed := f.rec.eventsOf(model.EventClosed)
	assert.Len(t, closed, 2)
	for _, ev := range closed {
		assert.Equal(t, model.CloseReasonShutdown, ev.Reason)
	}

	assert.ErrorIs(t, f.m.Show(bubble("u3", "C")), ErrClosed)
	assert.False(t, f.m.Hide("u1"))
	assert.Zero(t, f.m.HideAll())
	assert.Zero(t, f.m.ActiveCount())
	assert.NotPanics(t, func() {
		f.m.Pointer("u1", gesture.Down(0, 0))
		f.m.Dismiss("u1")
	})
}

func TestClose_WhileOwnerDeliversPointer(t *testing.T) {
	owner := NewSerialExecutor()
	t.Cleanup(owner.Close)
	f := newFixture(t, func(o *Options) { o.Executor = owner })
	require.NoError(t, f.m.Show(bubble("u1", "A")))

	running := make(chan struct{})
	owner.Post(func() {
		close(running)
		time.Sleep(50 * time.Millisecond)
		f.m.Pointer("u1", gesture.Down(0, 0))
		f.m.Pointer("u1", gesture.Move(40, 0))
		f.m.Dismiss("u1")
	})
	<-running

	done := make(chan struct{})
	go func() {
		f.m.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return while the owner was feeding pointer input")
	}
	assert.Zero(t, f.ctrl.Count())
	assert.Zero(t, f.m.ActiveCount())
}

func TestClose_WaitsForCommandInFlight(t *testing.T) {
	owner := NewSerialExecutor()
	t.Cleanup(owner.Close)
	f := newFixture(t, func(o *Options) { o.Executor = owner })

	release := make(chan struct{})
	owner.Post(func() { <-release })

	shown := make(chan error, 1)
	go func() { shown <- f.m.Show(bubble("u1", "A")) }()

	closed := make(chan struct{})
	go func() {
		time.Sleep(20 * time.Millisecond)
		f.m.Close()
		close(closed)
	}()

	time.Sleep(40 * time.Millisecond)
	close(release)

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return after the pending command finished")
	}
	select {
	case err := <-shown:
		if err != nil {
			assert.ErrorIs(t, err, ErrClosed)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Show did not return")
	}
	assert.Zero(t, f.ctrl.Count())
}

func TestConcurrentCommands(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		id := model.Identity(string(rune('a' + i)))
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_ = f.m.Show(model.Bubble{Identity: id})
				f.m.Pointer(id, gesture.Down(0, 0))
				f.m.Pointer(id, gesture.Move(30, 30))
				f.m.Hide(id)
			}
		}()
	}
	wg.Wait()
	f.settle()

	assert.Zero(t, f.m.ActiveCount())
	assert.Zero(t, f.ctrl.Count(), "no orphan windows")
}

func TestSerialExecutor_Order(t *testing.T) {
	e := NewSerialExecutor()

	var got []int
	for i := 0; i < 100; i++ {
		e.Post(func() { got = append(got, i) })
	}
	e.Close()

	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}

	// Posting after close is dropped.
	e.Post(func() { got = append(got, -1) })
	e.Close()
	assert.Len(t, got, 100)
}

func TestSerialExecutor_PostFromWork(t *testing.T) {
	e := NewSerialExecutor()
	done := make(chan struct{})

	e.Post(func() {
		e.Post(func() { close(done) })
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("nested post did not run")
	}
	e.Close()
}
