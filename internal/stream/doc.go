// Package stream provides the synchronous event primitives the render loop is
// built from.
//
// # Primitives
//
//   - Subject: multicast emitter. Dispatch calls every live listener in
//     registration order, synchronously. A re-entrant Dispatch is delivered
//     depth-first before the outer Dispatch resumes.
//   - BufferedSubject: the same multicast contract, but values are queued until
//     the owner flushes them. Delivery order under re-entrant dispatch is
//     identical to what a recursive Subject would produce; only the timing
//     changes.
//   - Subscription: an aggregate of cleanups. Unsubscribe runs each cleanup
//     exactly once, in registration order, and reports every failure.
//
// # Threading
//
// Nothing in this package is safe for concurrent use. All calls for one
// render loop must happen on a single goroutine; engine.Engine provides that
// goroutine and serialises callbacks from timers and workers onto it.
package stream
