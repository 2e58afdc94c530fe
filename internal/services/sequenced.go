package services

import (
	"github.com/roach88/reflux/internal/loop"
	"github.com/roach88/reflux/internal/reduce"
	"github.com/roach88/reflux/internal/stream"
)

// SequencedService unpacks reduce.Sequenced effects. Each non-nil child is
// emitted as an effect of its own, so the loop queues the children behind
// the composite in their original order.
func SequencedService() loop.Service {
	return service(func(effects stream.Subscriber[reduce.SideEffect], dispatch func(reduce.Message), sub *stream.Subscription) {
		sub.Add(effects.Subscribe(func(e reduce.SideEffect) {
			seq, ok := e.(reduce.Sequenced)
			if !ok {
				return
			}
			for _, child := range seq.Effects {
				if child == nil {
					continue
				}
				dispatch(child)
			}
		}))
	})
}
