package trace

import (
	"fmt"
	"strings"
	"time"
)

// Kind classifies a trace event.
type Kind string

const (
	KindValue  Kind = "value"
	KindDone   Kind = "done"
	KindFailed Kind = "failed"
)

// Event is one message observed on a stream.
type Event struct {
	AtMs    int64  `json:"at_ms"`
	Kind    Kind   `json:"kind"`
	Value   any    `json:"value,omitempty"`
	Context string `json:"context,omitempty"`
}

// Trace is the ordered record of one scenario run.
type Trace struct {
	Scenario string  `json:"scenario"`
	Events   []Event `json:"events"`
}

// AddValue records a value delivered at elapsed. The value is normalised
// to plain JSON types.
func (t *Trace) AddValue(elapsed time.Duration, v any) error {
	n, err := Normalize(v)
	if err != nil {
		return fmt.Errorf("trace value at %s: %w", elapsed, err)
	}
	t.Events = append(t.Events, Event{AtMs: elapsed.Milliseconds(), Kind: KindValue, Value: n})
	return nil
}

// AddSignal records a terminal signal.
func (t *Trace) AddSignal(elapsed time.Duration, context string, failed bool) {
	kind := KindDone
	if failed {
		kind = KindFailed
	}
	t.Events = append(t.Events, Event{AtMs: elapsed.Milliseconds(), Kind: kind, Context: context})
}

// Values returns the recorded values in order.
func (t *Trace) Values() []any {
	out := make([]any, 0, len(t.Events))
	for _, e := range t.Events {
		if e.Kind == KindValue {
			out = append(out, e.Value)
		}
	}
	return out
}

// ValueTimes returns the time of each recorded value in milliseconds.
func (t *Trace) ValueTimes() []int64 {
	out := make([]int64, 0, len(t.Events))
	for _, e := range t.Events {
		if e.Kind == KindValue {
			out = append(out, e.AtMs)
		}
	}
	return out
}

// Terminal returns the terminal event, if any.
func (t *Trace) Terminal() (Event, bool) {
	for _, e := range t.Events {
		if e.Kind != KindValue {
			return e, true
		}
	}
	return Event{}, false
}

// Canonical returns the trace as canonical JSON.
func (t *Trace) Canonical() ([]byte, error) {
	events := make([]any, len(t.Events))
	for i, e := range t.Events {
		m := map[string]any{
			"at_ms": e.AtMs,
			"kind":  string(e.Kind),
		}
		if e.Kind == KindValue {
			m["value"] = e.Value
		}
		if e.Context != "" {
			m["context"] = e.Context
		}
		events[i] = m
	}
	return Marshal(map[string]any{
		"scenario": t.Scenario,
		"events":   events,
	})
}

// String renders the trace one event per line.
func (t *Trace) String() string {
	var b strings.Builder
	for _, e := range t.Events {
		switch e.Kind {
		case KindValue:
			data, err := Marshal(e.Value)
			if err != nil {
				data = []byte(fmt.Sprint(e.Value))
			}
			fmt.Fprintf(&b, "%6dms  value   %s\n", e.AtMs, data)
		default:
			fmt.Fprintf(&b, "%6dms  %-6s  %s\n", e.AtMs, e.Kind, e.Context)
		}
	}
	return b.String()
}
