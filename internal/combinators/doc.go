// Package combinators implements operators over several streams: fan-out
// (Split, SplitLabelled, Switcher), chaining (Pipe) and fan-in
// (MergeSnapshot, Synchronise).
//
// Like single-input operators, combinators are lazy. Their inputs are
// subscribed while at least one output has subscribers, and a terminal
// signal is never swallowed unless an option asks for it.
package combinators
