package reactive

import "fmt"

// Kind distinguishes values from terminal signals.
type Kind uint8

const (
	// KindValue carries a value.
	KindValue Kind = iota + 1
	// KindSignal is terminal: nothing follows it.
	KindSignal
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindValue:
		return "value"
	case KindSignal:
		return "signal"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// SignalKind names a terminal signal.
type SignalKind string

// SignalDone is the only signal kind: the stream will never emit again.
const SignalDone SignalKind = "done"

// Message is the envelope delivered to subscribers.
type Message[T any] struct {
	Kind  Kind
	Value T

	// Signal fields. Err is non-nil when the stream closed because of a
	// failure.
	Signal  SignalKind
	Context string
	Err     error
}

// Handler receives messages from a stream.
type Handler[T any] func(Message[T])

// ValueMessage wraps v in a Value message.
func ValueMessage[T any](v T) Message[T] {
	return Message[T]{Kind: KindValue, Value: v}
}

// SignalMessage builds a terminal message.
func SignalMessage[T any](kind SignalKind, context string, err error) Message[T] {
	return Message[T]{Kind: KindSignal, Signal: kind, Context: context, Err: err}
}

// IsValue reports whether m carries a value.
func (m Message[T]) IsValue() bool {
	return m.Kind == KindValue
}

// IsSignal reports whether m is terminal.
func (m Message[T]) IsSignal() bool {
	return m.Kind == KindSignal
}

// Failed reports whether m is a terminal signal caused by a failure.
func (m Message[T]) Failed() bool {
	return m.Kind == KindSignal && m.Err != nil
}

// String implements fmt.Stringer.
func (m Message[T]) String() string {
	if m.IsValue() {
		return fmt.Sprintf("value(%v)", m.Value)
	}
	if m.Err != nil {
		return fmt.Sprintf("%s(%s: %v)", m.Signal, m.Context, m.Err)
	}
	return fmt.Sprintf("%s(%s)", m.Signal, m.Context)
}

// SignalAs re-types a terminal signal for a stream of another element
// type. It panics if m is a value.
func SignalAs[U, T any](m Message[T]) Message[U] {
	if !m.IsSignal() {
		panic("rivulet: SignalAs called with a value message")
	}
	return SignalMessage[U](m.Signal, m.Context, m.Err)
}
