// Package harness runs applications deterministically for tests.
//
// Two tools live here.
//
// Tester drives a reducer and its services by hand. Every effect and
// service output lands in one queue the test inspects (FindEffects,
// FindActions) and flushes at its own pace. The reducer is wrapped with
// GuardMutations, which panics when a reducer modifies its input.
//
// Scenarios are YAML documents validated against an embedded CUE schema:
//
//	name: counter_increments
//	description: two increments and a tick
//	app: counter
//	run_id: scenario-run-0001
//	steps:
//	  - dispatch: {type: increment, args: {by: 2}}
//	  - advance: 1s
//	assertions:
//	  - type: trace_count
//	    action: increment
//	    count: 1
//	  - type: final_state
//	    path: count
//	    expect: 3
//
// Run starts a session of the registered App on a manual scheduler with a
// fixed run token, journals every update into an in-memory store, executes
// the steps and evaluates the assertions against the trace read back from
// the journal. Golden snapshots are compared with goldie in tests
// (RunWithGolden) and byte-for-byte by RunSuite.
package harness
