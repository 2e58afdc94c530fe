package services

import (
	"github.com/roach88/reflux/internal/loop"
	"github.com/roach88/reflux/internal/reduce"
	"github.com/roach88/reflux/internal/stream"
)

// Inbox injects actions from outside the render loop, such as scenario
// steps or CLI ticks. Every session installed with Service receives every
// action dispatched afterwards.
//
// Dispatch runs the resulting cycle synchronously, so it must be called on
// the loop goroutine (for example from a task handed to Engine.Post).
type Inbox struct {
	subject *stream.Subject[reduce.Message]
}

// NewInbox creates an empty Inbox.
func NewInbox() *Inbox {
	return &Inbox{subject: stream.NewSubject[reduce.Message]()}
}

// Service returns the loop.Service feeding this inbox into a session. It
// ignores effects.
func (i *Inbox) Service() loop.Service {
	return func(stream.Subscriber[reduce.SideEffect]) stream.Subscriber[reduce.Message] {
		return i.subject
	}
}

// Dispatch delivers a to every installed session.
func (i *Inbox) Dispatch(a reduce.Action) {
	i.subject.Dispatch(a)
}

// Sessions returns how many sessions are listening.
func (i *Inbox) Sessions() int {
	return i.subject.Len()
}
