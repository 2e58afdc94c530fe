package stream

import "time"

// Timer schedules f to run once after d. The returned stop function cancels
// the call if it has not happened yet.
type Timer interface {
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

// DelayedValue returns a Subscriber that emits value once, d after each
// subscription, unless the subscription is torn down first.
func DelayedValue[T any](timer Timer, d time.Duration, value T) Subscriber[T] {
	return SubscriberFunc[T](func(listener func(T)) Teardown {
		stop := timer.AfterFunc(d, func() {
			listener(value)
		})
		return func() error {
			stop()
			return nil
		}
	})
}
