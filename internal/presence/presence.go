// Package presence keeps a resident desktop notification in sync with the
// number of active bubbles.
package presence

import (
	"fmt"
)

// DefaultTitle is the notification title used when none is configured.
const DefaultTitle = "Chat Bubbles Active"

// Indicator shows a background-presence summary.
// Update is best-effort and must never block for long or fail the caller.
type Indicator interface {
	Update(count int)
}

// Nop is an Indicator that does nothing.
type Nop struct{}

// Update implements Indicator.
func (Nop) Update(int) {}

// Func adapts a function to the Indicator interface.
type Func func(count int)

// Update calls f.
func (f Func) Update(count int) {
	f(count)
}

// Summary renders the body text for count active bubbles.
func Summary(count int) string {
	return fmt.Sprintf("%d bubble(s) active", count)
}
