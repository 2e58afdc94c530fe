package stream

// BufferedSubject is a multicast queue whose owner decides when values are
// delivered.
//
// State:
//   - buffer holds pending values, next due first
//   - stack holds one pending count per open flush frame; stack[0] is the
//     frame of values dispatched outside any flush
//
// INVARIANT: the stack counts always sum to len(buffer).
//
// Values dispatched while a value is being delivered land in the innermost
// frame, ahead of values still pending from outer frames. Draining with
// FlushUntilEmpty therefore visits values in exactly the order a recursive
// Subject would have, whatever mix of Dispatch/FlushNext the listeners use.
type BufferedSubject[T any] struct {
	buffer    []T
	stack     []int
	buffering bool
	flush     *Subject[T]
}

// NewBufferedSubject creates a BufferedSubject in manual (buffering) mode.
func NewBufferedSubject[T any]() *BufferedSubject[T] {
	return &BufferedSubject[T]{
		stack:     []int{0},
		buffering: true,
		flush:     NewSubject[T](),
	}
}

// SetBuffering switches between manual mode (true) and auto-flush mode.
// In auto-flush mode every Dispatch drains the queue before returning.
func (b *BufferedSubject[T]) SetBuffering(on bool) {
	b.buffering = on
}

// Buffering reports whether the subject is in manual mode.
func (b *BufferedSubject[T]) Buffering() bool {
	return b.buffering
}

// Subscribe registers a listener for flushed values.
func (b *BufferedSubject[T]) Subscribe(listener func(T)) Teardown {
	return b.flush.Subscribe(listener)
}

// Dispatch queues value.
//
// The value is inserted just before the region owned by outer, still-open
// frames and is counted against the innermost frame.
func (b *BufferedSubject[T]) Dispatch(value T) {
	at := len(b.buffer) - b.rightOffset()

	var zero T
	b.buffer = append(b.buffer, zero)
	copy(b.buffer[at+1:], b.buffer[at:])
	b.buffer[at] = value

	b.stack[len(b.stack)-1]++

	if !b.buffering {
		b.FlushUntilEmpty()
	}
}

// FlushNext delivers the next due value.
// Returns false when nothing was pending.
func (b *BufferedSubject[T]) FlushNext() (T, bool) {
	if len(b.buffer) == 0 {
		var zero T
		return zero, false
	}
	next := b.takeNext()
	b.executeFlush(next)
	return next, true
}

// FlushUntilEmpty delivers pending values until the queue is empty,
// including values dispatched while flushing. Returns them in delivery order.
func (b *BufferedSubject[T]) FlushUntilEmpty() []T {
	var flushed []T
	for len(b.buffer) > 0 {
		next := b.takeNext()
		flushed = append(flushed, next)
		b.executeFlush(next)
	}
	return flushed
}

// FlushAll drains the queue, discarding the delivered values.
// Convenient as a renderer's flush callback.
func (b *BufferedSubject[T]) FlushAll() {
	b.FlushUntilEmpty()
}

// Peek returns the next due value without removing it.
func (b *BufferedSubject[T]) Peek() (T, bool) {
	if len(b.buffer) == 0 {
		var zero T
		return zero, false
	}
	return b.buffer[0], true
}

// IsEmpty reports whether no values are pending.
func (b *BufferedSubject[T]) IsEmpty() bool {
	return len(b.buffer) == 0
}

// Len returns the number of pending values.
func (b *BufferedSubject[T]) Len() int {
	return len(b.buffer)
}

// Clear drops every pending value. Open frames stay open with a zero count.
func (b *BufferedSubject[T]) Clear() {
	clear(b.buffer)
	b.buffer = b.buffer[:0]
	for i := range b.stack {
		b.stack[i] = 0
	}
}

// Buffer returns a copy of the pending values, next due first.
func (b *BufferedSubject[T]) Buffer() []T {
	out := make([]T, len(b.buffer))
	copy(out, b.buffer)
	return out
}

// Stack returns a copy of the per-frame pending counts, outermost first.
func (b *BufferedSubject[T]) Stack() []int {
	out := make([]int, len(b.stack))
	copy(out, b.stack)
	return out
}

// rightOffset is the number of buffered values owned by every frame except
// the innermost one.
func (b *BufferedSubject[T]) rightOffset() int {
	offset := 0
	for i := 0; i < len(b.stack)-1; i++ {
		offset += b.stack[i]
	}
	return offset
}

// takeNext charges the innermost frame with a pending value and pops the
// front of the buffer. Must only be called with a non-empty buffer.
func (b *BufferedSubject[T]) takeNext() T {
	i := len(b.stack) - 1
	for i >= 0 && b.stack[i] <= 0 {
		i--
	}
	b.stack[i]--

	next := b.buffer[0]
	var zero T
	b.buffer[0] = zero
	b.buffer = b.buffer[1:]
	return next
}

// executeFlush delivers value inside a fresh frame. Whatever the listeners
// leave pending in that frame is merged into the enclosing one, so it is due
// before anything queued further out. The frame is closed even if a
// listener panics, keeping the stack consistent with the buffer.
func (b *BufferedSubject[T]) executeFlush(value T) {
	b.stack = append(b.stack, 0)
	defer func() {
		remaining := b.stack[len(b.stack)-1]
		b.stack = b.stack[:len(b.stack)-1]
		b.stack[len(b.stack)-1] += remaining
	}()

	b.flush.Dispatch(value)
}
