package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmylchreest/chatbubble/internal/gesture"
	"github.com/jmylchreest/chatbubble/internal/model"
	"github.com/jmylchreest/chatbubble/internal/overlay"
	"github.com/jmylchreest/chatbubble/internal/presence"
	"github.com/jmylchreest/chatbubble/internal/relay"
)

var (
	// ErrUnknownIdentity is returned by lookups for an identity with no session.
	ErrUnknownIdentity = errors.New("unknown bubble identity")

	// ErrClosed is returned by commands issued after Close.
	ErrClosed = errors.New("session manager closed")
)

// Options configures a Manager.
type Options struct {
	// Controller creates the bubble windows. Required.
	Controller overlay.Controller

	// Executor is the owner all state changes run on. When nil the manager
	// starts its own SerialExecutor and stops it on Close.
	Executor Executor

	// Permission gates window creation. Defaults to overlay.AlwaysPermitted.
	Permission overlay.Permission

	// Presence is updated after every change to the session set.
	Presence presence.Indicator

	// Events receives click and close events. A new relay is created when nil.
	Events *relay.Relay[model.Event]

	// Placement of new bubbles. The zero value selects DefaultPlacement.
	Placement Placement

	// OnShown is called after a new bubble window was created.
	OnShown func(info model.SessionInfo)

	// OnTeardown is called when the last bubble goes away and on HideAll.
	OnTeardown func()

	Logger *slog.Logger
}

// Manager owns the set of active bubbles.
//
// All session state lives on a single owner (the Executor). Show, Hide,
// HideAll, List, Lookup, ActiveCount and SetPlacement post to the owner and
// wait, so they must not be called from work running on the owner.
// Pointer and Dismiss only post and are meant for the UI thread.
//
// Events and teardown notifications are never delivered on the owner.
// Commands deliver them on the calling goroutine once the owner is done;
// pointer input delivers them on an internal goroutine in order. Listeners
// may therefore call back into the Manager.
type Manager struct {
	exec     Executor
	ownExec  *SerialExecutor
	delivery *SerialExecutor

	ctrl       *overlay.Coalescer
	permission overlay.Permission
	presence   presence.Indicator
	events     *relay.Relay[model.Event]
	onShown    func(model.SessionInfo)
	onTeardown func()
	logger     *slog.Logger

	// Commands hold the read lock while they wait on the owner so Close
	// can not stop the owner underneath them. closed is only set with the
	// write lock held, but post reads it without the lock because it runs
	// on the owner.
	mu     sync.RWMutex
	closed atomic.Bool

	// Owner-confined.
	sessions  map[model.Identity]*Session
	placement Placement
}

// NewManager creates a session manager.
func NewManager(opts Options) (*Manager, error) {
	if opts.Controller == nil {
		return nil, errors.New("session manager requires a window controller")
	}

	m := &Manager{
		exec:       opts.Executor,
		delivery:   NewSerialExecutor(),
		permission: opts.Permission,
		presence:   opts.Presence,
		events:     opts.Events,
		onShown:    opts.OnShown,
		onTeardown: opts.OnTeardown,
		logger:     opts.Logger,
		sessions:   make(map[model.Identity]*Session),
		placement:  opts.Placement,
	}

	if m.exec == nil {
		m.ownExec = NewSerialExecutor()
		m.exec = m.ownExec
	}
	if m.permission == nil {
		m.permission = overlay.AlwaysPermitted
	}
	if m.presence == nil {
		m.presence = presence.Nop{}
	}
	if m.events == nil {
		m.events = relay.New[model.Event]()
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.placement == (Placement{}) {
		m.placement = DefaultPlacement()
	}

	m.ctrl = overlay.NewCoalescer(opts.Controller, m.exec.Post, m.logger)
	return m, nil
}

// Events returns the relay click and close events are published on.
func (m *Manager) Events() *relay.Relay[model.Event] {
	return m.events
}

// Show displays a bubble for b.Identity. It is a no-op when the bubble is
// already shown. When the window can not be created the identity stays
// absent and the error is returned; it matches overlay.ErrOverlayDenied or
// overlay.ErrPlatformFailure.
func (m *Manager) Show(b model.Bubble) error {
	if err := b.Validate(); err != nil {
		return fmt.Errorf("invalid bubble: %w", err)
	}

	var (
		fx  []func()
		err error
	)
	if !m.call(func() { fx, err = m.show(b) }) {
		return ErrClosed
	}
	runEffects(fx)
	return err
}

// Hide removes the bubble for id and reports whether one was shown.
// Hiding an absent identity is a no-op.
func (m *Manager) Hide(id model.Identity) bool {
	var (
		fx      []func()
		removed bool
	)
	if !m.call(func() { fx, removed = m.hide(id, model.CloseReasonHidden) }) {
		return false
	}
	runEffects(fx)
	return removed
}

// HideAll removes every bubble, always signals teardown and returns the
// number of bubbles removed.
func (m *Manager) HideAll() int {
	var (
		fx []func()
		n  int
	)
	if !m.call(func() { fx, n = m.clear(model.CloseReasonCleared, true) }) {
		return 0
	}
	runEffects(fx)
	return n
}

// Pointer feeds a pointer sample for id's window. It never blocks.
// Samples for identities that are not shown are ignored.
func (m *Manager) Pointer(id model.Identity, s gesture.Sample) {
	m.post(func() { m.dispatch(m.pointer(id, s)) })
}

// Dismiss hides id from its close affordance. It never blocks.
func (m *Manager) Dismiss(id model.Identity) {
	m.post(func() {
		fx, _ := m.hide(id, model.CloseReasonDismissed)
		m.dispatch(fx)
	})
}

// ActiveCount returns the number of shown bubbles.
func (m *Manager) ActiveCount() int {
	var n int
	m.call(func() { n = len(m.sessions) })
	return n
}

// List returns snapshots of all sessions, oldest first.
func (m *Manager) List() []model.SessionInfo {
	var out []model.SessionInfo
	m.call(func() {
		out = make([]model.SessionInfo, 0, len(m.sessions))
		for _, s := range m.sessions {
			out = append(out, s.Info())
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Bubble.Identity < out[j].Bubble.Identity
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Lookup returns the session for id.
func (m *Manager) Lookup(id model.Identity) (model.SessionInfo, error) {
	var (
		info model.SessionInfo
		ok   bool
	)
	if !m.call(func() {
		var s *Session
		if s, ok = m.sessions[id]; ok {
			info = s.Info()
		}
	}) {
		return model.SessionInfo{}, ErrClosed
	}
	if !ok {
		return model.SessionInfo{}, fmt.Errorf("%w: %s", ErrUnknownIdentity, id)
	}
	return info, nil
}

// SetPlacement changes spawn placement and drag threshold. The threshold
// applies to existing bubbles from their next pointer sample.
func (m *Manager) SetPlacement(p Placement) {
	m.call(func() {
		m.placement = p
		for _, s := range m.sessions {
			s.classifier.SetThreshold(p.DragThreshold)
		}
	})
}

// Placement returns the current placement.
func (m *Manager) Placement() Placement {
	var p Placement
	m.call(func() { p = m.placement })
	return p
}

// Close removes all bubbles and stops the manager. Bubbles still shown are
// reported as closed with CloseReasonShutdown and teardown is signalled if
// there were any. Close must not be called from an event listener.
func (m *Manager) Close() {
	// Waits for commands in flight, which only need the owner to finish.
	m.mu.Lock()
	if m.closed.Load() {
		m.mu.Unlock()
		return
	}
	m.closed.Store(true)
	m.mu.Unlock()

	// The owner may be delivering pointer input right now; nothing it runs
	// takes mu, so waiting on it here can not deadlock.
	var fx []func()
	m.callLocked(func() {
		fx, _ = m.clear(model.CloseReasonShutdown, false)
	})

	runEffects(fx)
	m.delivery.Close()
	if m.ownExec != nil {
		m.ownExec.Close()
	}
	m.logger.Debug("session manager closed")
}

// call runs fn on the owner and waits. It reports false if the manager is closed.
func (m *Manager) call(fn func()) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed.Load() {
		return false
	}
	m.callLocked(fn)
	return true
}

func (m *Manager) callLocked(fn func()) {
	done := make(chan struct{})
	m.exec.Post(func() {
		defer close(done)
		fn()
	})
	<-done
}

// post queues fn on the owner without waiting. It is called from the owner
// itself, so it must never take mu. Work that races Close either finds no
// sessions left or is dropped by the stopped executor.
func (m *Manager) post(fn func()) {
	if m.closed.Load() {
		return
	}
	m.exec.Post(fn)
}

// dispatch hands effects produced on the owner to the delivery goroutine.
func (m *Manager) dispatch(fx []func()) {
	if len(fx) == 0 {
		return
	}
	m.delivery.Post(func() { runEffects(fx) })
}

func runEffects(fx []func()) {
	for _, f := range fx {
		f()
	}
}

// The methods below run on the owner.

func (m *Manager) show(b model.Bubble) ([]func(), error) {
	if _, ok := m.sessions[b.Identity]; ok {
		m.logger.Debug("bubble already shown", "identity", b.Identity)
		return nil, nil
	}

	if !m.permission.OverlayPermitted() {
		return nil, overlay.Denied("create", b.Identity, nil)
	}

	at := m.placement.spawnAt(len(m.sessions))
	h, err := m.ctrl.Create(b, at)
	if err != nil {
		if !errors.Is(err, overlay.ErrOverlayDenied) && !errors.Is(err, overlay.ErrPlatformFailure) {
			err = overlay.Failure("create", b.Identity, err)
		}
		m.logger.Warn("failed to create bubble window", "identity", b.Identity, "error", err)
		return nil, err
	}

	s := &Session{
		ID:         model.NewID(),
		Bubble:     b,
		Position:   at,
		Handle:     h,
		CreatedAt:  time.Now(),
		classifier: gesture.NewClassifier(m.placement.DragThreshold),
	}
	m.sessions[b.Identity] = s
	m.presence.Update(len(m.sessions))

	m.logger.Info("bubble shown", "identity", b.Identity, "session", s.ID, "x", at.X, "y", at.Y)

	var fx []func()
	if m.onShown != nil {
		info := s.Info()
		fx = append(fx, func() { m.onShown(info) })
	}
	return fx, nil
}

func (m *Manager) hide(id model.Identity, reason model.CloseReason) ([]func(), bool) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, false
	}

	m.destroy(s)
	delete(m.sessions, id)
	m.presence.Update(len(m.sessions))

	m.logger.Info("bubble hidden", "identity", id, "reason", reason, "remaining", len(m.sessions))

	fx := []func(){m.publishEffect(model.NewCloseEvent(s.Bubble, reason))}
	if len(m.sessions) == 0 {
		fx = append(fx, m.teardownEffect())
	}
	return fx, true
}

// clear destroys every session. Teardown is signalled when always is set or
// anything was removed.
func (m *Manager) clear(reason model.CloseReason, always bool) ([]func(), int) {
	removed := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		removed = append(removed, s)
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i].CreatedAt.Before(removed[j].CreatedAt) })

	for _, s := range removed {
		m.destroy(s)
	}
	m.sessions = make(map[model.Identity]*Session)
	m.presence.Update(0)

	m.logger.Info("all bubbles hidden", "count", len(removed), "reason", reason)

	fx := make([]func(), 0, len(removed)+1)
	for _, s := range removed {
		fx = append(fx, m.publishEffect(model.NewCloseEvent(s.Bubble, reason)))
	}
	if always || len(removed) > 0 {
		fx = append(fx, m.teardownEffect())
	}
	return fx, len(removed)
}

// destroy removes the window of s. Failures are logged; the window is
// considered gone either way.
func (m *Manager) destroy(s *Session) {
	if err := m.ctrl.Destroy(s.Handle); err != nil {
		m.logger.Warn("failed to destroy bubble window", "identity", s.Bubble.Identity, "error", err)
	}
	s.classifier.Reset()
}

func (m *Manager) pointer(id model.Identity, sample gesture.Sample) []func() {
	s, ok := m.sessions[id]
	if !ok {
		return nil
	}

	var fx []func()
	for _, e := range s.classifier.Feed(sample, s.Position) {
		switch e.Kind {
		case gesture.EffectReposition:
			s.Position = e.Position
			if err := m.ctrl.Move(s.Handle, e.Position); err != nil {
				m.logger.Warn("failed to move bubble window", "identity", id, "error", err)
			}
		case gesture.EffectTap:
			m.logger.Debug("bubble tapped", "identity", id)
			fx = append(fx, m.publishEffect(model.NewClickEvent(s.Bubble)))
		}
	}
	return fx
}

func (m *Manager) publishEffect(ev model.Event) func() {
	return func() {
		if !m.events.Publish(ev) {
			m.logger.Debug("event dropped: no listener", "kind", ev.Kind, "identity", ev.Bubble.Identity)
		}
	}
}

func (m *Manager) teardownEffect() func() {
	return func() {
		m.logger.Debug("bubble teardown")
		if m.onTeardown != nil {
			m.onTeardown()
		}
	}
}
