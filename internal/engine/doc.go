// Package engine hosts render loops on a single goroutine.
//
// The render loop itself is synchronous and must never be entered from two
// goroutines at once. Timers, background loads and worker results arrive on
// other goroutines, so the engine serialises them: everything that touches a
// loop session is posted to one FIFO task queue and executed by Run.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// 1. Post() appends a task from any goroutine
// 2. Run() executes tasks one at a time, in FIFO order
// 3. A task may dispatch actions, flush effects or post more tasks
// 4. Stop() closes the queue; Run drains what is already queued and returns
//
// RunLoop mounts a loop.Loop on an engine. Every trace update is stamped with
// the run token and the next value of the logical clock, and the number of
// actions per run is capped by the max-steps quota.
//
// CRITICAL PATTERNS:
//
// Logical Clock:
// Updates are ordered by Clock.Next(), never by wall-clock time.
//
// Panics:
// A panic escaping a task stops the engine and is returned from Run as a
// RuntimeError with ErrCodeLoopPanic. The render loop itself never recovers.
package engine
