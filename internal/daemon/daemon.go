package daemon

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmylchreest/chatbubble/internal/config"
	"github.com/jmylchreest/chatbubble/internal/model"
	"github.com/jmylchreest/chatbubble/internal/overlay"
	"github.com/jmylchreest/chatbubble/internal/presence"
	"github.com/jmylchreest/chatbubble/internal/session"
)

// Publisher forwards manager events to clients, normally as bus signals.
type Publisher interface {
	EmitEvent(ev model.Event) error
	EmitTeardown() error
}

// Cues plays sounds for bubble activity.
type Cues interface {
	PlaySpawn()
	PlayClick()
}

// Options configures a Daemon.
type Options struct {
	Config     *config.DaemonConfig
	Controller overlay.Controller
	Permission overlay.Permission
	Presence   presence.Indicator
	Publisher  Publisher
	Cues       Cues
	Logger     *slog.Logger

	// Executor is the manager's owner. Nil starts a private goroutine.
	Executor session.Executor

	// OnIdle is called when exit_when_idle is set and no bubble has been
	// shown for idle_grace after a teardown.
	OnIdle func()
}

// Daemon owns the session manager and reacts to what it reports.
type Daemon struct {
	mu  sync.Mutex
	cfg *config.DaemonConfig

	manager    *session.Manager
	permission overlay.Permission
	presence   presence.Indicator
	publisher  Publisher
	cues       Cues
	onIdle     func()
	logger     *slog.Logger

	unsubscribe func()
	idleTimer   *time.Timer
	closing     atomic.Bool
}

// New creates the daemon and its session manager.
func New(opts Options) (*Daemon, error) {
	if opts.Controller == nil {
		return nil, errors.New("daemon requires a window controller")
	}
	if opts.Config == nil {
		opts.Config = config.DefaultDaemonConfig()
	}
	if opts.Permission == nil {
		opts.Permission = overlay.AlwaysPermitted
	}
	if opts.Presence == nil {
		opts.Presence = presence.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	d := &Daemon{
		cfg:        opts.Config,
		permission: opts.Permission,
		presence:   opts.Presence,
		publisher:  opts.Publisher,
		cues:       opts.Cues,
		onIdle:     opts.OnIdle,
		logger:     opts.Logger,
	}

	manager, err := session.NewManager(session.Options{
		Controller: opts.Controller,
		Executor:   opts.Executor,
		Permission: opts.Permission,
		Presence:   opts.Presence,
		Placement:  PlacementFor(opts.Config),
		OnShown:    d.handleShown,
		OnTeardown: d.handleTeardown,
		Logger:     opts.Logger,
	})
	if err != nil {
		return nil, err
	}
	d.manager = manager
	d.unsubscribe = manager.Events().Subscribe(d.handleEvent)

	return d, nil
}

// PlacementFor derives the manager placement from cfg.
func PlacementFor(cfg *config.DaemonConfig) session.Placement {
	return session.Placement{
		Spawn:         model.Position{X: cfg.Bubble.SpawnX, Y: cfg.Bubble.SpawnY},
		Stagger:       cfg.Bubble.Stagger,
		DragThreshold: cfg.Bubble.DragThreshold,
	}
}

// Manager returns the session manager.
func (d *Daemon) Manager() *session.Manager {
	return d.manager
}

// Show implements dbus.Handler.
func (d *Daemon) Show(b model.Bubble) error {
	return d.manager.Show(b)
}

// Hide implements dbus.Handler.
func (d *Daemon) Hide(id model.Identity) bool {
	return d.manager.Hide(id)
}

// HideAll implements dbus.Handler.
func (d *Daemon) HideAll() int {
	return d.manager.HideAll()
}

// List implements dbus.Handler.
func (d *Daemon) List() []model.SessionInfo {
	return d.manager.List()
}

// ActiveCount implements dbus.Handler.
func (d *Daemon) ActiveCount() int {
	return d.manager.ActiveCount()
}

// OverlayPermitted implements dbus.Handler.
func (d *Daemon) OverlayPermitted() bool {
	return d.permission.OverlayPermitted()
}

// Config returns the configuration currently applied.
func (d *Daemon) Config() *config.DaemonConfig {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

// Apply switches to a reloaded configuration. Placement and threshold take
// effect immediately; the presence title is updated when the indicator
// supports it.
func (d *Daemon) Apply(cfg *config.DaemonConfig) {
	d.mu.Lock()
	d.cfg = cfg
	d.mu.Unlock()

	d.manager.SetPlacement(PlacementFor(cfg))
	if t, ok := d.presence.(interface{ SetTitle(string) }); ok {
		t.SetTitle(cfg.Presence.Title)
	}
	d.logger.Debug("configuration applied",
		"spawn_x", cfg.Bubble.SpawnX, "spawn_y", cfg.Bubble.SpawnY,
		"drag_threshold", cfg.Bubble.DragThreshold)
}

// Close hides every bubble and stops the manager. It must not be called
// from the manager's owner.
func (d *Daemon) Close() {
	if d.closing.Swap(true) {
		return
	}

	d.mu.Lock()
	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}
	d.mu.Unlock()

	d.manager.Close()
	d.unsubscribe()
	d.logger.Info("daemon closed")
}

func (d *Daemon) handleEvent(ev model.Event) {
	if d.publisher != nil {
		if err := d.publisher.EmitEvent(ev); err != nil {
			d.logger.Warn("failed to publish event", "kind", ev.Kind, "identity", ev.Bubble.Identity, "error", err)
		}
	}
	if ev.Kind == model.EventClicked && d.cues != nil {
		d.cues.PlayClick()
	}
}

func (d *Daemon) handleShown(model.SessionInfo) {
	if d.cues != nil {
		d.cues.PlaySpawn()
	}
}

func (d *Daemon) handleTeardown() {
	d.logger.Info("all bubbles gone")
	if d.publisher != nil {
		if err := d.publisher.EmitTeardown(); err != nil {
			d.logger.Warn("failed to publish teardown", "error", err)
		}
	}

	cfg := d.Config()
	if !cfg.Daemon.ExitWhenIdle || d.onIdle == nil || d.closing.Load() {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(cfg.Daemon.IdleGrace.Duration(), d.checkIdle)
}

func (d *Daemon) checkIdle() {
	if d.closing.Load() {
		return
	}
	if n := d.manager.ActiveCount(); n > 0 {
		d.logger.Debug("bubbles shown again, staying up", "count", n)
		return
	}
	d.logger.Info("idle, exiting")
	d.onIdle()
}
