package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/reflux/internal/loop"
	"github.com/roach88/reflux/internal/reduce"
	"github.com/roach88/reflux/internal/stream"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// installed is a service subscribed outside a loop. Effects are pushed in
// by hand; outputs are collected in order.
type installed struct {
	effects  *stream.Subject[reduce.SideEffect]
	outputs  []reduce.Message
	teardown stream.Teardown
}

func install(t *testing.T, svc loop.Service) *installed {
	t.Helper()
	in := &installed{effects: stream.NewSubject[reduce.SideEffect]()}
	in.teardown = svc(in.effects).Subscribe(func(m reduce.Message) {
		in.outputs = append(in.outputs, m)
	})
	t.Cleanup(func() { _ = in.teardown() })
	return in
}

func (in *installed) send(effects ...reduce.SideEffect) {
	for _, e := range effects {
		in.effects.Dispatch(e)
	}
}

func (in *installed) take() []reduce.Message {
	out := in.outputs
	in.outputs = nil
	return out
}

func (in *installed) close(t *testing.T) {
	t.Helper()
	require.NoError(t, in.teardown())
}

type effect string

func (e effect) EffectType() string { return string(e) }
