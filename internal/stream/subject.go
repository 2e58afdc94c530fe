package stream

// listenerSlot holds one registration. The id is stamped from a monotonic
// counter so the same function registered twice yields two independent slots.
type listenerSlot[T any] struct {
	id      uint64
	fn      func(T)
	removed bool
}

// Subject is a synchronous multicast emitter.
//
// Dispatch iterates over a snapshot of the listeners taken when it starts.
// A listener removed during a dispatch is skipped for the rest of that
// dispatch; a listener added during a dispatch only sees later dispatches.
type Subject[T any] struct {
	lastID    uint64
	listeners []*listenerSlot[T]
}

// NewSubject creates a Subject with no listeners.
func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{}
}

// Dispatch delivers value to every live listener in registration order.
func (s *Subject[T]) Dispatch(value T) {
	snapshot := s.listeners
	for _, slot := range snapshot {
		if slot.removed {
			continue
		}
		slot.fn(value)
	}
}

// Subscribe registers listener and returns a teardown that removes it.
// The teardown is idempotent and never fails.
func (s *Subject[T]) Subscribe(listener func(T)) Teardown {
	s.lastID++
	slot := &listenerSlot[T]{id: s.lastID, fn: listener}
	s.listeners = append(s.listeners, slot)

	return func() error {
		s.remove(slot)
		return nil
	}
}

// Len returns the number of live listeners.
func (s *Subject[T]) Len() int {
	return len(s.listeners)
}

// remove marks the slot dead and rebuilds the registry without it.
// The rebuilt slice never shares a backing array with an in-flight snapshot.
func (s *Subject[T]) remove(slot *listenerSlot[T]) {
	if slot.removed {
		return
	}
	slot.removed = true

	kept := make([]*listenerSlot[T], 0, len(s.listeners))
	for _, l := range s.listeners {
		if l.id != slot.id {
			kept = append(kept, l)
		}
	}
	s.listeners = kept
}
