// Package debounce delays propagation of a rapidly changing value until it settles.
package debounce

import (
	"sync"
	"time"
)

// Debouncer emits the last value set once no new value has arrived for the delay.
// Only the trailing value of a burst is emitted.
type Debouncer[T any] struct {
	delay time.Duration
	fn    func(T)

	mu         sync.Mutex
	timer      *time.Timer
	generation uint64
	pending    T
	hasPending bool
	settled    T
}

// New creates a Debouncer. fn runs on the timer goroutine; it may be nil when callers
// only read Value.
func New[T any](delay time.Duration, fn func(T)) *Debouncer[T] {
	return &Debouncer[T]{delay: delay, fn: fn}
}

// Set records v as the latest input and restarts the quiet period.
func (d *Debouncer[T]) Set(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.generation++
	gen := d.generation
	d.pending = v
	d.hasPending = true

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

// fire emits the pending value unless a newer Set, Flush or Stop superseded it.
func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.generation || !d.hasPending {
		d.mu.Unlock()
		return
	}
	v := d.emitLocked()
	d.mu.Unlock()

	if d.fn != nil {
		d.fn(v)
	}
}

func (d *Debouncer[T]) emitLocked() T {
	d.settled = d.pending
	d.hasPending = false
	var zero T
	d.pending = zero
	return d.settled
}

// Value returns the last settled value
func (d *Debouncer[T]) Value() T {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.settled
}

// Pending reports whether a value is waiting for the quiet period to end
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hasPending
}

// Flush emits a pending value immediately. It returns false when nothing was pending.
func (d *Debouncer[T]) Flush() bool {
	d.mu.Lock()
	if !d.hasPending {
		d.mu.Unlock()
		return false
	}
	d.generation++
	if d.timer != nil {
		d.timer.Stop()
	}
	v := d.emitLocked()
	d.mu.Unlock()

	if d.fn != nil {
		d.fn(v)
	}
	return true
}

// Stop cancels any pending emission. The settled value is kept.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.generation++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	var zero T
	d.pending = zero
	d.hasPending = false
}

// Reset cancels any pending emission and sets the settled value without emitting it
func (d *Debouncer[T]) Reset(v T) {
	d.Stop()
	d.mu.Lock()
	d.settled = v
	d.mu.Unlock()
}
