// Package mailbox provides a single-slot handoff where a newer value
// replaces any value not yet taken.
package mailbox

import "sync"

// Slot holds at most one pending value of type T.
type Slot[T any] struct {
	mu      sync.Mutex
	value   T
	full    bool
	dropped uint64
	ready   chan struct{}
}

// New creates an empty slot.
func New[T any]() *Slot[T] {
	return &Slot[T]{ready: make(chan struct{}, 1)}
}

// Put stores v, replacing any pending value. It reports whether a pending
// value was overwritten. Put never blocks.
func (s *Slot[T]) Put(v T) (replaced bool) {
	s.mu.Lock()
	replaced = s.full
	if replaced {
		s.dropped++
	}
	s.value = v
	s.full = true
	s.mu.Unlock()

	select {
	case s.ready <- struct{}{}:
	default:
	}
	return replaced
}

// Take removes and returns the pending value. ok is false when empty.
func (s *Slot[T]) Take() (v T, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.full {
		return v, false
	}
	v = s.value
	var zero T
	s.value = zero
	s.full = false
	return v, true
}

// Ready is signalled after Put. A signal may be stale, so receivers must
// call Take and handle an empty slot.
func (s *Slot[T]) Ready() <-chan struct{} {
	return s.ready
}

// Dropped returns how many values were overwritten before being taken.
func (s *Slot[T]) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}
