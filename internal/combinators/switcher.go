package combinators

import (
	"github.com/roach88/rivulet/internal/reactive"
)

// Match selects how many cases a value is routed to.
type Match int

const (
	// MatchFirst routes a value to the first matching case only.
	MatchFirst Match = iota
	// MatchAll routes a value to every matching case.
	MatchAll
)

// String implements fmt.Stringer.
func (m Match) String() string {
	if m == MatchAll {
		return "all"
	}
	return "first"
}

// Case is one labelled route of a Switcher.
type Case[T any] struct {
	Label     string
	Predicate func(T) bool
}

// SwitcherOptions configures a Switcher.
type SwitcherOptions struct {
	Match Match
}

// Switcher routes each value of a source to labelled outputs. Cases are
// evaluated in order; a value matching nothing is dropped. When the
// source closes every output closes with it.
type Switcher[T any] struct {
	cases []Case[T]
	match Match
	outs  map[string]*reactive.Relay[T]
	link  *link[T]
}

// NewSwitcher creates a Switcher over src.
func NewSwitcher[T any](src reactive.Stream[T], cases []Case[T], o SwitcherOptions, opts ...reactive.Option) (*Switcher[T], error) {
	if src == nil {
		return nil, reactive.NewConfigError("switcher", "source", "nil source")
	}
	labels := make([]string, len(cases))
	for i, c := range cases {
		if c.Predicate == nil {
			return nil, reactive.NewConfigError("switcher", "cases", "case "+c.Label+" has no predicate")
		}
		labels[i] = c.Label
	}
	if err := validateLabels("switcher", labels); err != nil {
		return nil, err
	}
	if o.Match != MatchFirst && o.Match != MatchAll {
		return nil, reactive.NewConfigError("switcher", "Match", "unknown match mode")
	}

	s := &Switcher[T]{
		cases: cases,
		match: o.Match,
		outs:  make(map[string]*reactive.Relay[T], len(cases)),
	}
	s.link = newLink(src, s.handle)

	for _, c := range cases {
		cfg := reactive.NewConfig("switcher", src, opts...)
		s.outs[c.Label] = reactive.NewRelay[T](cfg, s.link.holderHooks())
	}
	return s, nil
}

// Out returns the output for label, or nil if there is no such case.
func (s *Switcher[T]) Out(label string) *reactive.Relay[T] {
	return s.outs[label]
}

// Labels returns the case labels in evaluation order.
func (s *Switcher[T]) Labels() []string {
	labels := make([]string, len(s.cases))
	for i, c := range s.cases {
		labels[i] = c.Label
	}
	return labels
}

// Dispose closes every output.
func (s *Switcher[T]) Dispose(reason string) {
	for _, c := range s.cases {
		s.outs[c.Label].Dispose(reason)
	}
}

func (s *Switcher[T]) handle(m reactive.Message[T]) {
	if m.IsSignal() {
		for _, c := range s.cases {
			s.outs[c.Label].Terminate(m.Context, m.Err)
		}
		return
	}

	for _, c := range s.cases {
		if !c.Predicate(m.Value) {
			continue
		}
		_ = s.outs[c.Label].Publish(m.Value)
		if s.match == MatchFirst {
			return
		}
	}
}
