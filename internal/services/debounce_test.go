package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/reflux/internal/reduce"
	"github.com/roach88/reflux/internal/testutil"
)

func TestDebounceService_FiresAfterDelay(t *testing.T) {
	sched := testutil.NewManualScheduler(epoch)
	in := install(t, DebounceService(sched))

	in.send(Debounce{Action: reduce.Named("save"), Name: "save", Delay: time.Second})
	sched.Advance(999 * time.Millisecond)
	assert.Empty(t, in.take())

	sched.Advance(time.Millisecond)
	assert.Equal(t, []reduce.Message{reduce.Named("save")}, in.take())
}

func TestDebounceService_DefaultDelay(t *testing.T) {
	sched := testutil.NewManualScheduler(epoch)
	in := install(t, DebounceService(sched))

	in.send(Debounce{Action: reduce.Named("save"), Name: "save"})
	sched.Advance(DefaultDebounceDelay - time.Millisecond)
	assert.Empty(t, in.take())

	sched.Advance(time.Millisecond)
	assert.Len(t, in.take(), 1)
}

func TestDebounceService_RestartReplacesPending(t *testing.T) {
	sched := testutil.NewManualScheduler(epoch)
	in := install(t, DebounceService(sched))

	in.send(Debounce{Action: reduce.Named("v1"), Name: "input", Delay: time.Second})
	sched.Advance(800 * time.Millisecond)
	in.send(Debounce{Action: reduce.Named("v2"), Name: "input", Delay: time.Second})
	sched.Advance(800 * time.Millisecond)
	assert.Empty(t, in.take())

	sched.Advance(200 * time.Millisecond)
	assert.Equal(t, []reduce.Message{reduce.Named("v2")}, in.take())
	assert.Equal(t, 0, sched.Pending())
}

func TestDebounceService_NamesAreIndependent(t *testing.T) {
	sched := testutil.NewManualScheduler(epoch)
	in := install(t, DebounceService(sched))

	in.send(
		Debounce{Action: reduce.Named("a"), Name: "a", Delay: 2 * time.Second},
		Debounce{Action: reduce.Named("b"), Name: "b", Delay: time.Second},
	)
	sched.Advance(2 * time.Second)

	assert.Equal(t, []reduce.Message{reduce.Named("b"), reduce.Named("a")}, in.take())
}

func TestDebounceService_Flush(t *testing.T) {
	sched := testutil.NewManualScheduler(epoch)
	in := install(t, DebounceService(sched))

	in.send(Debounce{Action: reduce.Named("save"), Name: "save", Delay: time.Second})
	in.send(FlushDebounce{Name: "save"})
	assert.Equal(t, []reduce.Message{reduce.Named("save")}, in.take())

	sched.Advance(time.Minute)
	assert.Empty(t, in.take())
}

func TestDebounceService_FlushUnknownIsNoop(t *testing.T) {
	sched := testutil.NewManualScheduler(epoch)
	in := install(t, DebounceService(sched))

	in.send(FlushDebounce{Name: "missing"})
	assert.Empty(t, in.take())
}

func TestDebounceService_Clear(t *testing.T) {
	sched := testutil.NewManualScheduler(epoch)
	in := install(t, DebounceService(sched))

	in.send(Debounce{Action: reduce.Named("save"), Name: "save", Delay: time.Second})
	in.send(ClearDebounce{Name: "save"})
	sched.Advance(time.Minute)

	assert.Empty(t, in.take())
	assert.Equal(t, 0, sched.Pending())
}

func TestDebounceService_TeardownStopsTimers(t *testing.T) {
	sched := testutil.NewManualScheduler(epoch)
	in := install(t, DebounceService(sched))

	in.send(
		Debounce{Action: reduce.Named("a"), Name: "a", Delay: time.Second},
		Debounce{Action: reduce.Named("b"), Name: "b", Delay: time.Second},
	)
	in.close(t)

	assert.Equal(t, 0, sched.Pending())
	sched.Advance(time.Minute)
	assert.Empty(t, in.take())
}
