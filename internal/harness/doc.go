// Package harness runs declarative stream scenarios on virtual time.
//
// A scenario wires one or more sources, an optional combinator and a
// pipeline of operators, runs them on a sched.Virtual clock and checks
// what came out.
//
// # Scenario Format
//
//	name: batch-quantity
//	description: "Batches of three"
//	sources:
//	  - values: [1, 2, 3, 4, 5]
//	pipeline:
//	  - op: batch
//	    quantity: 3
//	expect:
//	  values: [[1, 2, 3], [4, 5]]
//	  at_ms: [0, 0]
//	  closed: true
//
// Sources are one of:
//
//   - values: a sequence published as fast as it is pulled
//   - events: values written at virtual times ({at: 10ms, value: 1})
//   - ticks: a counter ({interval: 10ms, limit: 5})
//
// Any source may set close_at to dispose it at a virtual time. More than
// one source requires combine: {op: merge} or {op: synchronise}.
//
// # Stages
//
// batch, filter, transform, field, debounce, throttle, elapsed, element
// and switch. Predicates and transforms are CUE expressions over v, see
// package expr.
//
// # Deterministic Testing
//
// Every run uses a fresh virtual clock and sequential stream IDs, so the
// same scenario always produces the same trace. Traces are compared
// against golden files with RunWithGolden.
package harness
