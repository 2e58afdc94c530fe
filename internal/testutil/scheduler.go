package testutil

import (
	"sort"
	"sync"
	"time"
)

// ManualScheduler is a fake clock plus task queue for driving services
// deterministically.
//
// Timers registered with AfterFunc fire only when Advance moves the fake
// time past their deadline. Tasks handed to Post (possibly from other
// goroutines) run only when RunPosted or WaitPosted is called. All callbacks
// run on the goroutine that calls Advance/RunPosted/WaitPosted.
//
// Thread-safety: all methods are safe for concurrent use; callbacks are
// invoked without the internal lock held.
type ManualScheduler struct {
	mu      sync.Mutex
	now     time.Time
	timers  []*manualTimer
	nextSeq uint64
	posted  []func()
	signal  chan struct{}
	closed  bool
}

type manualTimer struct {
	deadline time.Time
	seq      uint64
	f        func()
	done     bool
}

// NewManualScheduler creates a scheduler whose clock reads start.
func NewManualScheduler(start time.Time) *ManualScheduler {
	return &ManualScheduler{
		now:    start,
		signal: make(chan struct{}, 1),
	}
}

// Now returns the fake current time.
func (m *ManualScheduler) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// AfterFunc registers f to fire once the fake time reaches now+d.
func (m *ManualScheduler) AfterFunc(d time.Duration, f func()) func() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextSeq++
	t := &manualTimer{deadline: m.now.Add(d), seq: m.nextSeq, f: f}
	m.timers = append(m.timers, t)

	return func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		if t.done {
			return false
		}
		t.done = true
		return true
	}
}

// Advance moves the fake time forward by d, firing due timers in deadline
// order (registration order for equal deadlines). Timers registered by a
// callback fire too if they fall inside the window. Returns the number of
// timers fired.
func (m *ManualScheduler) Advance(d time.Duration) int {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	fired := 0
	for {
		m.mu.Lock()
		next := m.nextDue(target)
		if next == nil {
			m.now = target
			m.compact()
			m.mu.Unlock()
			return fired
		}
		next.done = true
		if next.deadline.After(m.now) {
			m.now = next.deadline
		}
		m.mu.Unlock()

		next.f()
		fired++
	}
}

// Pending returns the number of timers that have neither fired nor been
// stopped.
func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.timers {
		if !t.done {
			n++
		}
	}
	return n
}

// Post queues task. Returns false after Close.
func (m *ManualScheduler) Post(task func()) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	m.posted = append(m.posted, task)
	select {
	case m.signal <- struct{}{}:
	default:
	}
	return true
}

// RunPosted runs every queued task, including tasks posted while running,
// and returns how many ran.
func (m *ManualScheduler) RunPosted() int {
	ran := 0
	for {
		m.mu.Lock()
		if len(m.posted) == 0 {
			m.mu.Unlock()
			return ran
		}
		task := m.posted[0]
		m.posted = m.posted[1:]
		m.mu.Unlock()

		task()
		ran++
	}
}

// WaitPosted blocks until at least one task has been posted or timeout
// elapses, then runs the queued tasks. Returns how many ran.
func (m *ManualScheduler) WaitPosted(timeout time.Duration) int {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		if ran := m.RunPosted(); ran > 0 {
			return ran
		}
		select {
		case <-m.signal:
		case <-deadline.C:
			return m.RunPosted()
		}
	}
}

// Close makes further Post calls fail.
func (m *ManualScheduler) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

// nextDue returns the earliest live timer due at or before target.
// Caller holds mu.
func (m *ManualScheduler) nextDue(target time.Time) *manualTimer {
	var best *manualTimer
	for _, t := range m.timers {
		if t.done || t.deadline.After(target) {
			continue
		}
		if best == nil || t.deadline.Before(best.deadline) ||
			(t.deadline.Equal(best.deadline) && t.seq < best.seq) {
			best = t
		}
	}
	return best
}

// compact drops finished timers. Caller holds mu.
func (m *ManualScheduler) compact() {
	live := m.timers[:0]
	for _, t := range m.timers {
		if !t.done {
			live = append(live, t)
		}
	}
	clear(m.timers[len(live):])
	m.timers = live
	sort.SliceStable(m.timers, func(i, j int) bool { return m.timers[i].seq < m.timers[j].seq })
}
