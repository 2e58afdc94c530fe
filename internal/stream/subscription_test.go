package stream

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscription_RunsEachCleanupOnceEvenNested(t *testing.T) {
	calls := 0
	cb := func() { calls++ }

	sub := NewSubscription()
	child := NewSubscription()
	child.AddFunc(cb)
	child.AddFunc(cb)

	unsubscribe := sub.Unsubscribe

	sub.AddFunc(cb)
	sub.Add(sub.Unsubscribe)
	sub.AddSubscription(child)
	sub.AddSubscription(child)
	sub.AddFunc(cb)
	sub.AddFunc(cb)

	require.NoError(t, unsubscribe())
	assert.Equal(t, 5, calls)

	require.NoError(t, unsubscribe())
	assert.Equal(t, 5, calls, "second unsubscribe must not rerun cleanups")
}

func TestSubscription_RegistrationOrder(t *testing.T) {
	var order []string
	sub := NewSubscription()
	child := NewSubscription()

	sub.AddFunc(func() { order = append(order, "a") })
	sub.AddSubscription(child)
	child.AddFunc(func() { order = append(order, "child-1") })
	child.AddFunc(func() { order = append(order, "child-2") })
	sub.AddFunc(func() { order = append(order, "b") })

	require.NoError(t, sub.Unsubscribe())
	assert.Equal(t, []string{"a", "child-1", "child-2", "b"}, order)
}

func TestSubscription_AddReturnsArgument(t *testing.T) {
	sub := NewSubscription()
	child := NewSubscription()

	assert.Same(t, child, sub.AddSubscription(child))
	assert.Nil(t, sub.Add(nil))
	assert.Nil(t, sub.AddFunc(nil))
	assert.Equal(t, 1, sub.Len())
}

func TestSubscription_FailuresAreAggregated(t *testing.T) {
	errBoom := errors.New("boom")
	ran := 0

	sub := NewSubscription()
	sub.Add(func() error { return errBoom })
	sub.AddFunc(func() { ran++ })
	sub.AddFunc(func() { panic("kaboom") })
	sub.AddFunc(func() { ran++ })

	err := sub.Unsubscribe()
	require.Error(t, err)
	assert.Equal(t, 2, ran, "cleanups after a failure must still run")

	assert.True(t, IsTeardownError(err))
	assert.ErrorIs(t, err, errBoom)

	var te *TeardownError
	require.ErrorAs(t, err, &te)
	require.Len(t, te.Errs, 2)
	assert.Contains(t, te.Errs[1].Error(), "kaboom")
	assert.Contains(t, err.Error(), "2 cleanup(s) failed")
}

func TestSubscription_ChildFailurePropagates(t *testing.T) {
	errChild := errors.New("child failed")

	child := NewSubscription()
	child.Add(func() error { return errChild })

	parent := NewSubscription()
	parent.AddSubscription(child)

	err := parent.Unsubscribe()
	require.Error(t, err)
	assert.ErrorIs(t, err, errChild)
}

func TestSubscription_PanicWithErrorIsWrapped(t *testing.T) {
	errBoom := errors.New("boom")

	sub := NewSubscription()
	sub.AddFunc(func() { panic(errBoom) })

	err := sub.Unsubscribe()
	assert.ErrorIs(t, err, errBoom)
}

func TestSubscription_ReusableAfterUnsubscribe(t *testing.T) {
	calls := 0
	sub := NewSubscription()

	sub.AddFunc(func() { calls++ })
	require.NoError(t, sub.Unsubscribe())

	sub.AddFunc(func() { calls++ })
	require.NoError(t, sub.Unsubscribe())

	assert.Equal(t, 2, calls)
}
