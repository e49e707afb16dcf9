// Package operators implements single-input stream operators.
//
// Every operator is a reactive.Bridge with an OnValue behaviour, so each
// one is lazy, inherits its upstream's scheduler and cascades the
// upstream's terminal signal. Timing operators arm timers on that
// scheduler and stop them when the bridge detaches.
//
// Operators with required options return a *reactive.ConfigError at
// construction time when those options are missing.
package operators
