// Package sched provides the schedulers every rivulet stream runs on.
//
// The engine is single-threaded: subscribe, notify and dispose transitions
// for a stream execute one at a time on the scheduler's goroutine. The
// only suspension points are the ones a Scheduler exposes:
//
//   - Defer: run a task after the current one returns (activation hooks,
//     sequence pulls).
//   - AfterFunc: run a task once a duration has elapsed (batch, debounce,
//     throttle, ticks).
//
// Two implementations are provided:
//
// Loop is the production scheduler. Tasks are queued FIFO and executed by
// the single goroutine calling Run, mirroring a single-writer event loop.
// Defer and timer expiry may be triggered from any goroutine.
//
// Virtual is a deterministic scheduler with manually advanced time. Tests
// and declarative scenarios use it so that timing properties ("emits at
// t=70") are exact rather than approximate.
package sched
