// Package services provides stock loop.Service implementations.
//
// Each service watches the shared effect stream for the effect types it owns
// and ignores everything else. Anything that must happen later (timers) or
// elsewhere (storage round-trips, background work) goes through a Scheduler
// or Poster, so callbacks always re-enter the render loop on the goroutine
// that owns it. engine.Engine implements both in production.
package services
