package presence

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	godbus "github.com/godbus/dbus/v5"
)

const (
	notificationsName  = "org.freedesktop.Notifications"
	notificationsPath  = "/org/freedesktop/Notifications"
	notificationsIface = "org.freedesktop.Notifications"

	appName = "chatbubbled"
	appIcon = "user-available"
)

// Notification is the argument set of org.freedesktop.Notifications.Notify.
type Notification struct {
	AppName       string
	ReplacesID    uint32
	AppIcon       string
	Summary       string
	Body          string
	Actions       []string
	Hints         map[string]godbus.Variant
	ExpireTimeout int32
}

// Notifier sends and withdraws desktop notifications.
type Notifier interface {
	Notify(n Notification) (uint32, error)
	CloseNotification(id uint32) error
}

// BusNotifier talks to the desktop notification service on the session bus.
type BusNotifier struct {
	obj godbus.BusObject
}

// NewBusNotifier creates a notifier using conn.
func NewBusNotifier(conn *godbus.Conn) *BusNotifier {
	return &BusNotifier{obj: conn.Object(notificationsName, notificationsPath)}
}

// Notify implements Notifier.
func (b *BusNotifier) Notify(n Notification) (uint32, error) {
	actions := n.Actions
	if actions == nil {
		actions = []string{}
	}
	hints := n.Hints
	if hints == nil {
		hints = map[string]godbus.Variant{}
	}

	var id uint32
	call := b.obj.Call(notificationsIface+".Notify", 0,
		n.AppName, n.ReplacesID, n.AppIcon, n.Summary, n.Body, actions, hints, n.ExpireTimeout)
	if err := call.Store(&id); err != nil {
		return 0, fmt.Errorf("failed to send notification: %w", err)
	}
	return id, nil
}

// CloseNotification implements Notifier.
func (b *BusNotifier) CloseNotification(id uint32) error {
	if err := b.obj.Call(notificationsIface+".CloseNotification", 0, id).Err; err != nil {
		return fmt.Errorf("failed to close notification %d: %w", id, err)
	}
	return nil
}

// Build returns the resident low-urgency notification for count bubbles.
func Build(title string, count int, replaces uint32) Notification {
	if title == "" {
		title = DefaultTitle
	}
	return Notification{
		AppName:    appName,
		ReplacesID: replaces,
		AppIcon:    appIcon,
		Summary:    title,
		Body:       Summary(count),
		Hints: map[string]godbus.Variant{
			"urgency":        godbus.MakeVariant(byte(0)),
			"category":       godbus.MakeVariant("im"),
			"resident":       godbus.MakeVariant(true),
			"transient":      godbus.MakeVariant(false),
			"suppress-sound": godbus.MakeVariant(true),
			"desktop-entry":  godbus.MakeVariant(appName),
		},
		ExpireTimeout: 0,
	}
}

// DBusIndicator keeps a single resident notification updated with the
// bubble count. Updates are applied on a background goroutine, collapsing
// bursts to the latest count, so Update never waits on the bus.
type DBusIndicator struct {
	notifier Notifier
	logger   *slog.Logger
	// conn is the private bus connection opened by ConnectDBusIndicator.
	conn io.Closer

	mu      sync.Mutex
	title   string
	pending int
	dirty   bool
	id      uint32

	wake      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewDBusIndicator starts an indicator backed by notifier.
// A nil notifier yields an indicator that only logs.
func NewDBusIndicator(notifier Notifier, title string, logger *slog.Logger) *DBusIndicator {
	if logger == nil {
		logger = slog.Default()
	}
	if title == "" {
		title = DefaultTitle
	}
	d := &DBusIndicator{
		notifier: notifier,
		logger:   logger,
		title:    title,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

// ConnectDBusIndicator connects to the session bus and returns an indicator.
// When the bus is unavailable the indicator is silent.
func ConnectDBusIndicator(title string, logger *slog.Logger) *DBusIndicator {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := godbus.ConnectSessionBus()
	if err != nil {
		logger.Debug("presence indicator disabled: session bus unavailable", "error", err)
		return NewDBusIndicator(nil, title, logger)
	}
	d := NewDBusIndicator(NewBusNotifier(conn), title, logger)
	d.conn = conn
	return d
}

// Update implements Indicator.
func (d *DBusIndicator) Update(count int) {
	d.mu.Lock()
	d.pending = count
	d.dirty = true
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// SetTitle changes the notification title. It is applied on the next update.
func (d *DBusIndicator) SetTitle(title string) {
	if title == "" {
		title = DefaultTitle
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.title = title
}

// Close stops the indicator, withdraws any visible notification and closes
// the bus connection it opened.
func (d *DBusIndicator) Close() {
	d.closeOnce.Do(func() {
		close(d.done)
		d.wg.Wait()

		d.mu.Lock()
		id := d.id
		d.id = 0
		d.mu.Unlock()

		if id != 0 && d.notifier != nil {
			if err := d.notifier.CloseNotification(id); err != nil {
				d.logger.Debug("failed to withdraw presence notification", "error", err)
			}
		}
		if d.conn != nil {
			if err := d.conn.Close(); err != nil {
				d.logger.Debug("failed to close presence bus connection", "error", err)
			}
		}
	})
}

func (d *DBusIndicator) run() {
	defer d.wg.Done()
	for {
		select {
		case <-d.done:
			return
		case <-d.wake:
			d.apply()
		}
	}
}

func (d *DBusIndicator) apply() {
	d.mu.Lock()
	if !d.dirty {
		d.mu.Unlock()
		return
	}
	count := d.pending
	title := d.title
	id := d.id
	d.dirty = false
	d.mu.Unlock()

	if d.notifier == nil {
		d.logger.Debug("presence update skipped: no notification service", "count", count)
		return
	}

	if count <= 0 {
		if id == 0 {
			return
		}
		if err := d.notifier.CloseNotification(id); err != nil {
			d.logger.Debug("failed to withdraw presence notification", "error", err)
		}
		d.setID(0)
		return
	}

	newID, err := d.notifier.Notify(Build(title, count, id))
	if err != nil {
		d.logger.Debug("presence update failed", "count", count, "error", err)
		return
	}
	d.setID(newID)
}

func (d *DBusIndicator) setID(id uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.id = id
}

// NotificationID returns the id of the visible notification, or 0.
func (d *DBusIndicator) NotificationID() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.id
}
