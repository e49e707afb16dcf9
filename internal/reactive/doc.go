// Package reactive implements the rivulet value-propagation engine.
//
// Values are pushed, never pulled, through pipelines of streams. Every
// stream is backed by a Hub: an ordered registry of subscriber callbacks
// with lifecycle hooks on the 0→1 and 1→0 subscriber transitions.
//
// ARCHITECTURE:
//
// Message model:
// A stream delivers Message values. A message is either a Value or a
// terminal Signal. A stream that has sent a Signal never sends again.
// Failures travel as a Signal whose Err is set, so consumers can tell a
// normal close from a failed one without parsing Context.
//
// Capabilities:
// Stream, WithLast, Writable, Disposable and DiffAware are separate
// interfaces; concrete types implement the subset they support.
//
// Sources:
// Resolve normalises slices, iter.Seq, iterators, channels and async pull
// functions into a Sequence, a lazy stream that pulls one element per
// scheduler task.
//
// Bridge:
// Bridge is the subscribe-transform-forward primitive nearly every operator
// is built on. It ties the downstream's activation to the upstream's and
// cascades terminal signals downstream.
//
// SCHEDULING:
//
// All callbacks run on a sched.Scheduler. Activation hooks and sequence
// pulls are deferred tasks, never synchronous recursion, so a caller
// always receives its unsubscribe function before activation side
// effects run, and cancellation is observable between pulled elements.
// Streams inherit the scheduler of their upstream unless WithScheduler is
// given.
package reactive
