package services

import (
	"time"

	"github.com/roach88/reflux/internal/reduce"
	"github.com/roach88/reflux/internal/stream"
)

// Scheduler runs callbacks on the loop goroutine after a delay.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) (stop func() bool)
	Now() time.Time
}

// Poster hands a callback to the loop goroutine. Post must be safe to call
// from any goroutine and returns false once the loop no longer accepts work.
type Poster interface {
	Post(task func()) bool
}

// service builds a loop.Service from a per-subscription setup function.
// setup registers its cleanups on sub.
func service(setup func(effects stream.Subscriber[reduce.SideEffect], dispatch func(reduce.Message), sub *stream.Subscription)) func(stream.Subscriber[reduce.SideEffect]) stream.Subscriber[reduce.Message] {
	return func(effects stream.Subscriber[reduce.SideEffect]) stream.Subscriber[reduce.Message] {
		return stream.SubscriberFunc[reduce.Message](func(dispatch func(reduce.Message)) stream.Teardown {
			sub := stream.NewSubscription()
			setup(effects, dispatch, sub)
			return sub.Unsubscribe
		})
	}
}
