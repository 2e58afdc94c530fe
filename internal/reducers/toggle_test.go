package reducers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/reflux/internal/reduce"
)

func TestReduceToggle_Flip(t *testing.T) {
	state := map[string]bool{"menu": false, "sidebar": true}

	r := ReduceToggle(state, Flip("menu"))

	assert.Equal(t, map[string]bool{"menu": true, "sidebar": true}, r.State)
	assert.False(t, state["menu"], "input state must not change")
	assert.Nil(t, r.Effect)
}

func TestReduceToggle_MissingKeyReadsFalse(t *testing.T) {
	r := ReduceToggle(nil, Flip("menu"))

	assert.Equal(t, map[string]bool{"menu": true}, r.State)
}

func TestReduceToggle_SetKeepsIdentityWhenUnchanged(t *testing.T) {
	state := map[string]bool{"menu": true}

	r := ReduceToggle(state, Set("menu", true))
	assert.True(t, reduce.Identical(state, r.State))

	r = ReduceToggle(state, Set("menu", false))
	assert.False(t, reduce.Identical(state, r.State))
	assert.Equal(t, map[string]bool{"menu": false}, r.State)
}

func TestReduceToggle_IgnoresOtherActions(t *testing.T) {
	state := map[string]bool{"menu": true}

	r := ReduceToggle(state, reduce.Named("other"))

	assert.True(t, reduce.Identical(state, r.State))
}

func TestMutuallyExclude(t *testing.T) {
	exclusions := []string{"a", "b", "c"}

	tests := []struct {
		name string
		prev map[string]bool
		next map[string]bool
		want map[string]bool
	}{
		{
			name: "nothing on",
			prev: map[string]bool{},
			next: map[string]bool{"x": true},
			want: map[string]bool{"x": true},
		},
		{
			name: "newly switched key wins over older one",
			prev: map[string]bool{"a": true},
			next: map[string]bool{"a": true, "b": true},
			want: map[string]bool{"a": false, "b": true},
		},
		{
			name: "first newly switched key wins",
			prev: map[string]bool{},
			next: map[string]bool{"b": true, "c": true},
			want: map[string]bool{"b": true, "c": false},
		},
		{
			name: "first key wins when nothing is new",
			prev: map[string]bool{"b": true, "c": true},
			next: map[string]bool{"b": true, "c": true},
			want: map[string]bool{"b": true, "c": false},
		},
		{
			name: "keys outside exclusions untouched",
			prev: map[string]bool{"a": true, "x": true},
			next: map[string]bool{"a": true, "c": true, "x": true},
			want: map[string]bool{"a": false, "c": true, "x": true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := make(map[string]bool, len(tt.next))
			for k, v := range tt.next {
				before[k] = v
			}

			got := MutuallyExclude(tt.prev, tt.next, exclusions)

			assert.Equal(t, tt.want, got)
			assert.Equal(t, before, tt.next, "next must not be modified")
		})
	}
}

func TestMutuallyExclude_ReturnsNextWhenAlreadyExclusive(t *testing.T) {
	next := map[string]bool{"a": true}

	got := MutuallyExclude(map[string]bool{}, next, []string{"a", "b"})

	assert.True(t, reduce.Identical(next, got))
}

func TestExclusiveToggles(t *testing.T) {
	reducer := ExclusiveToggles("light", "dark")
	state := map[string]bool{"light": true}

	r := reducer(state, Set("dark", true))
	assert.Equal(t, map[string]bool{"light": false, "dark": true}, r.State)

	same := reducer(r.State, Set("dark", true))
	assert.True(t, reduce.Identical(r.State, same.State))
}
