package overlay

import (
	"fmt"
	"sort"
	"sync"

	"github.com/jmylchreest/chatbubble/internal/model"
)

// Window is the state of a window held by a MemoryController.
type Window struct {
	Handle   Handle
	Bubble   model.Bubble
	Position model.Position
	Moves    int
}

// MemoryController is a Controller that keeps windows in memory.
// It backs the headless daemon and tests, and can be told to fail.
type MemoryController struct {
	mu      sync.Mutex
	next    Handle
	windows map[Handle]*Window

	createErr  error
	destroyErr map[Handle]error
	destroyed  int
}

// NewMemoryController creates an empty in-memory controller.
func NewMemoryController() *MemoryController {
	return &MemoryController{
		windows:    make(map[Handle]*Window),
		destroyErr: make(map[Handle]error),
	}
}

// FailCreate makes every following Create return err until cleared with nil.
func (m *MemoryController) FailCreate(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createErr = err
}

// FailDestroy makes Destroy of h return err. The window is still removed.
func (m *MemoryController) FailDestroy(h Handle, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.destroyErr[h] = err
}

// Create implements Controller.
func (m *MemoryController) Create(b model.Bubble, at model.Position) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return 0, m.createErr
	}

	m.next++
	h := m.next
	m.windows[h] = &Window{Handle: h, Bubble: b, Position: at}
	return h, nil
}

// Move implements Controller.
func (m *MemoryController) Move(h Handle, to model.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[h]
	if !ok {
		return nil
	}
	w.Position = to
	w.Moves++
	return nil
}

// Destroy implements Controller.
func (m *MemoryController) Destroy(h Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.windows[h]; !ok {
		return nil
	}
	delete(m.windows, h)
	m.destroyed++

	if err, ok := m.destroyErr[h]; ok {
		delete(m.destroyErr, h)
		return Failure("destroy", "", fmt.Errorf("handle %d: %w", h, err))
	}
	return nil
}

// Window returns a copy of the window for h.
func (m *MemoryController) Window(h Handle) (Window, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[h]
	if !ok {
		return Window{}, false
	}
	return *w, true
}

// Windows returns copies of all live windows ordered by handle.
func (m *MemoryController) Windows() []Window {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Window, 0, len(m.windows))
	for _, w := range m.windows {
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out
}

// Count returns the number of live windows.
func (m *MemoryController) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}

// Destroyed returns how many windows have been removed so far.
func (m *MemoryController) Destroyed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.destroyed
}
