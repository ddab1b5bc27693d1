package display

import (
	"github.com/diamondburned/gotk4/pkg/core/glib"
)

// MainLoop runs posted work on the GTK main loop, in order.
type MainLoop struct{}

// Post schedules fn as an idle callback.
func (MainLoop) Post(fn func()) {
	glib.IdleAdd(fn)
}
