// Package relay provides a single-listener publish/subscribe channel used to
// hand bubble events to the host application.
package relay

import "sync"

// Relay delivers values to at most one listener.
//
// Publish is fire-and-forget: when no listener is attached the value is
// dropped and never replayed. The listener runs on the publishing goroutine
// without the relay lock held, so it may call back into the relay.
type Relay[T any] struct {
	mu       sync.Mutex
	listener func(T)
	gen      uint64
}

// New creates a relay with no listener.
func New[T any]() *Relay[T] {
	return &Relay[T]{}
}

// Subscribe installs fn as the listener, replacing any previous one.
// The returned cancel function removes fn only if it is still installed;
// calling it more than once is harmless.
func (r *Relay[T]) Subscribe(fn func(T)) (cancel func()) {
	r.mu.Lock()
	r.gen++
	gen := r.gen
	r.listener = fn
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			if r.gen == gen {
				r.listener = nil
			}
		})
	}
}

// Unsubscribe removes the current listener, if any.
func (r *Relay[T]) Unsubscribe() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	r.listener = nil
}

// HasListener reports whether a listener is attached.
func (r *Relay[T]) HasListener() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listener != nil
}

// Publish delivers v to the current listener and reports whether it was
// delivered.
func (r *Relay[T]) Publish(v T) bool {
	r.mu.Lock()
	fn := r.listener
	r.mu.Unlock()

	if fn == nil {
		return false
	}
	fn(v)
	return true
}
