// Package overlay defines the window controller used to place bubble windows
// above all other surfaces, plus a headless in-memory backend and a
// move-coalescing wrapper.
package overlay

import (
	"github.com/jmylchreest/chatbubble/internal/gesture"
	"github.com/jmylchreest/chatbubble/internal/model"
)

// Handle identifies a window created by a Controller.
// The zero Handle is never returned by a successful Create.
type Handle uint64

// Controller attaches, moves and removes bubble windows.
//
// Create attaches a top-most, non-focusable window showing b at the given
// position. It fails with an error matching ErrOverlayDenied when the
// platform refuses overlays and ErrPlatformFailure for anything else.
//
// Move must return quickly; it may be called once per pointer sample.
//
// Destroy is idempotent: an unknown or already destroyed handle is a no-op.
type Controller interface {
	Create(b model.Bubble, at model.Position) (Handle, error)
	Move(h Handle, to model.Position) error
	Destroy(h Handle) error
}

// Permission answers whether overlay windows may currently be created.
type Permission interface {
	OverlayPermitted() bool
}

// PermissionFunc adapts a function to the Permission interface.
type PermissionFunc func() bool

// OverlayPermitted calls f.
func (f PermissionFunc) OverlayPermitted() bool {
	return f()
}

// AlwaysPermitted grants every request.
var AlwaysPermitted Permission = PermissionFunc(func() bool { return true })

// Input receives user interaction from bubble windows.
// Implementations must not block; they are called from the UI thread.
type Input interface {
	// Pointer forwards a pointer sample in surface coordinates.
	Pointer(id model.Identity, s gesture.Sample)
	// Dismiss is called when the bubble's close affordance is pressed.
	Dismiss(id model.Identity)
}
