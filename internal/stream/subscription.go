package stream

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Teardown releases whatever a Subscribe call acquired.
// It returns an error only when one or more cleanups failed.
type Teardown func() error

// Subscriber is anything that can be listened to.
type Subscriber[T any] interface {
	Subscribe(listener func(T)) Teardown
}

// Dispatcher is anything that accepts values.
type Dispatcher[T any] interface {
	Dispatch(value T)
}

// SubscriberFunc adapts a plain function to the Subscriber interface.
type SubscriberFunc[T any] func(listener func(T)) Teardown

// Subscribe calls f(listener).
func (f SubscriberFunc[T]) Subscribe(listener func(T)) Teardown {
	return f(listener)
}

// Subscription aggregates cleanups so they can be released together.
//
// INVARIANTS:
//   - every cleanup runs at most once per registration
//   - cleanups run in registration order
//   - a failing cleanup never prevents the remaining ones from running
//
// The zero value is ready to use.
type Subscription struct {
	cleanups []Teardown
}

// NewSubscription returns an empty Subscription.
func NewSubscription() *Subscription {
	return &Subscription{}
}

// Add registers a teardown and returns it unchanged so call sites can chain.
// A nil teardown is ignored.
func (s *Subscription) Add(t Teardown) Teardown {
	if t == nil {
		return t
	}
	s.cleanups = append(s.cleanups, t)
	return t
}

// AddFunc registers a cleanup that cannot fail and returns it unchanged.
func (s *Subscription) AddFunc(f func()) func() {
	if f == nil {
		return f
	}
	s.cleanups = append(s.cleanups, func() error {
		f()
		return nil
	})
	return f
}

// AddSubscription delegates to child.Unsubscribe and returns child.
// Errors from the child are folded into this subscription's aggregate.
func (s *Subscription) AddSubscription(child *Subscription) *Subscription {
	if child == nil {
		return child
	}
	s.cleanups = append(s.cleanups, child.Unsubscribe)
	return child
}

// Len returns the number of cleanups waiting to run.
func (s *Subscription) Len() int {
	return len(s.cleanups)
}

// Unsubscribe runs every registered cleanup once.
//
// The cleanup list is detached before anything runs, so a cleanup that calls
// Unsubscribe again (directly or through a child) finds nothing left to do.
// Panics raised by cleanups are recovered. Each failure is logged; if any
// occurred the aggregate is returned as a *TeardownError.
func (s *Subscription) Unsubscribe() error {
	cleanups := s.cleanups
	s.cleanups = nil

	var errs []error
	for i, cleanup := range cleanups {
		if err := runCleanup(cleanup); err != nil {
			slog.Error("cleanup failed during unsubscribe",
				"index", i,
				"error", err,
			)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return &TeardownError{Errs: errs}
	}
	return nil
}

// runCleanup invokes a cleanup, converting a panic into an error.
func runCleanup(cleanup Teardown) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if rErr, ok := r.(error); ok {
				err = fmt.Errorf("cleanup panicked: %w", rErr)
				return
			}
			err = fmt.Errorf("cleanup panicked: %v", r)
		}
	}()
	return cleanup()
}

// TeardownError collects every failure raised while unsubscribing.
type TeardownError struct {
	Errs []error
}

// Error implements the error interface.
func (e *TeardownError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d cleanup(s) failed while unsubscribing: %s", len(e.Errs), strings.Join(msgs, "; "))
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *TeardownError) Unwrap() []error {
	return e.Errs
}

// IsTeardownError returns true if err is or wraps a *TeardownError.
func IsTeardownError(err error) bool {
	var te *TeardownError
	return errors.As(err, &te)
}
