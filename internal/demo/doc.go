// Package demo is a small counter application built on the render loop.
//
// The counter can be stepped by hand, ticks on its own while the "running"
// mode is on, persists its count through the storage service, restores it
// on request and doubles it on a background worker. The step size is read
// from the debounced "step" input. It backs the CLI's run command and the
// scenario tests.
package demo
