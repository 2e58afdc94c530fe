package loop

import (
	"github.com/roach88/reflux/internal/reduce"
	"github.com/roach88/reflux/internal/stream"
)

// Service turns the shared effect stream into a stream of follow-up actions
// and effects. It is the only sanctioned place for impure work.
//
// A service may emit synchronously while it is being subscribed, and must
// release everything it acquired when the returned teardown runs.
type Service func(effects stream.Subscriber[reduce.SideEffect]) stream.Subscriber[reduce.Message]

// ServiceOutputs merges the outputs of services into one stream.
//
// Services are installed lazily, in list order, on first subscription. The
// first output a service produces installs every service still pending before
// that output is forwarded. A service that emits while being installed thus
// sees the services after it installed, and their install-time outputs are
// forwarded ahead of its own.
//
// If installation panics, everything subscribed so far is torn down and the
// panic is re-raised. This includes a panic raised by the consumer while a
// service's install-time output is forwarded. A service whose own Subscribe
// is unwound that way never returned a teardown and cannot be released.
func ServiceOutputs(effects stream.Subscriber[reduce.SideEffect], services []Service) stream.Subscriber[reduce.Message] {
	return stream.SubscriberFunc[reduce.Message](func(dispatch func(reduce.Message)) stream.Teardown {
		shared := stream.NewSubject[reduce.SideEffect]()
		sub := stream.NewSubscription()
		pending := append([]Service(nil), services...)
		installed := false

		var install func()
		install = func() {
			if installed {
				return
			}
			for len(pending) > 0 {
				next := pending[0]
				pending = pending[1:]
				if next == nil {
					continue
				}
				sub.Add(next(shared).Subscribe(func(m reduce.Message) {
					install()
					dispatch(m)
				}))
			}
			installed = true
		}

		func() {
			defer func() {
				if r := recover(); r != nil {
					_ = sub.Unsubscribe()
					panic(r)
				}
			}()
			sub.Add(effects.Subscribe(shared.Dispatch))
			install()
		}()

		return sub.Unsubscribe
	})
}
