package overlay

import (
	"log/slog"
	"sync"

	"github.com/jmylchreest/chatbubble/internal/model"
)

// Coalescer wraps a Controller so that bursts of Move calls collapse to the
// latest position per handle. Pending moves are applied by a single flush
// scheduled through post, which must run work on the thread that owns the
// wrapped controller.
type Coalescer struct {
	inner  Controller
	post   func(func())
	logger *slog.Logger

	mu        sync.Mutex
	pending   map[Handle]model.Position
	scheduled bool
}

// NewCoalescer creates a coalescing wrapper around inner.
func NewCoalescer(inner Controller, post func(func()), logger *slog.Logger) *Coalescer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coalescer{
		inner:   inner,
		post:    post,
		logger:  logger,
		pending: make(map[Handle]model.Position),
	}
}

// Create implements Controller.
func (c *Coalescer) Create(b model.Bubble, at model.Position) (Handle, error) {
	return c.inner.Create(b, at)
}

// Move records the target position and returns immediately.
// Earlier positions for the same handle that were not yet applied are dropped.
func (c *Coalescer) Move(h Handle, to model.Position) error {
	c.mu.Lock()
	c.pending[h] = to
	schedule := !c.scheduled
	c.scheduled = true
	c.mu.Unlock()

	if schedule {
		c.post(c.Flush)
	}
	return nil
}

// Destroy drops any pending move for h and destroys the window.
func (c *Coalescer) Destroy(h Handle) error {
	c.mu.Lock()
	delete(c.pending, h)
	c.mu.Unlock()

	return c.inner.Destroy(h)
}

// Flush applies all pending moves now.
func (c *Coalescer) Flush() {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[Handle]model.Position, len(pending))
	c.scheduled = false
	c.mu.Unlock()

	for h, to := range pending {
		if err := c.inner.Move(h, to); err != nil {
			c.logger.Warn("failed to move bubble window", "handle", h, "error", err)
		}
	}
}

// Pending returns the number of handles with an unapplied move.
func (c *Coalescer) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
