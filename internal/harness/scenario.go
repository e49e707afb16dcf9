package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario is one declarative stream test.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Sources produce the input streams.
	Sources []SourceSpec `yaml:"sources"`

	// Combine joins several sources into one stream.
	// Required when there is more than one source.
	Combine *CombineSpec `yaml:"combine,omitempty"`

	// Pipeline is applied in order to the (combined) source.
	Pipeline []StageSpec `yaml:"pipeline,omitempty"`

	// RunFor bounds the run in virtual time. Zero runs until no timer
	// is left.
	RunFor Duration `yaml:"run_for,omitempty"`

	// Expect is checked against the recorded trace.
	Expect Expectation `yaml:"expect"`

	// Path is the file the scenario was loaded from, if any.
	Path string `yaml:"-"`
}

// SourceSpec describes one input stream. Exactly one of Values, Events
// and Ticks must be set.
type SourceSpec struct {
	Values  []any       `yaml:"values,omitempty"`
	Events  []EventSpec `yaml:"events,omitempty"`
	Ticks   *TicksSpec  `yaml:"ticks,omitempty"`
	CloseAt *Duration   `yaml:"close_at,omitempty"`
}

// EventSpec is a value written at a virtual time.
type EventSpec struct {
	At    Duration `yaml:"at"`
	Value any      `yaml:"value"`
}

// TicksSpec configures a ticks source.
type TicksSpec struct {
	Interval Duration `yaml:"interval"`
	Limit    int      `yaml:"limit,omitempty"`
}

// CombineSpec joins sources.
type CombineSpec struct {
	// Op is "merge" or "synchronise".
	Op     string `yaml:"op"`
	Strict bool   `yaml:"strict,omitempty"`
}

// Combine ops.
const (
	CombineMerge       = "merge"
	CombineSynchronise = "synchronise"
)

// StageSpec is one pipeline operator. Which fields apply depends on Op.
type StageSpec struct {
	Op string `yaml:"op"`

	// batch
	Quantity      int  `yaml:"quantity,omitempty"`
	DropRemainder bool `yaml:"drop_remainder,omitempty"`

	// batch, debounce, throttle
	Elapsed Duration `yaml:"elapsed,omitempty"`

	// debounce
	EmitPending bool `yaml:"emit_pending,omitempty"`

	// filter, transform, element
	Expr string `yaml:"expr,omitempty"`

	// field
	Name    string `yaml:"name,omitempty"`
	Default any    `yaml:"default,omitempty"`

	// element
	Index *int `yaml:"index,omitempty"`

	// switch
	Cases []CaseSpec `yaml:"cases,omitempty"`
	Match string     `yaml:"match,omitempty"`
	Take  string     `yaml:"take,omitempty"`
}

// CaseSpec is one labelled route of a switch stage.
type CaseSpec struct {
	Label string `yaml:"label"`
	Expr  string `yaml:"expr"`
}

// Stage ops.
const (
	OpBatch     = "batch"
	OpFilter    = "filter"
	OpTransform = "transform"
	OpField     = "field"
	OpDebounce  = "debounce"
	OpThrottle  = "throttle"
	OpElapsed   = "elapsed"
	OpElement   = "element"
	OpSwitch    = "switch"
)

var stageOps = []string{
	OpBatch, OpFilter, OpTransform, OpField, OpDebounce,
	OpThrottle, OpElapsed, OpElement, OpSwitch,
}

// Expectation lists what the output stream must have delivered.
// Unset fields are not checked.
type Expectation struct {
	Values []any   `yaml:"values,omitempty"`
	AtMs   []int64 `yaml:"at_ms,omitempty"`
	Closed *bool   `yaml:"closed,omitempty"`
	Failed *bool   `yaml:"failed,omitempty"`
}

// Duration is a time.Duration written either as a Go duration string
// ("150ms") or as an integer number of milliseconds.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", node.Line)
	}
	if node.Tag == "!!int" {
		var ms int64
		if err := node.Decode(&ms); err != nil {
			return err
		}
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// ScenarioError reports a scenario that cannot be loaded or built.
type ScenarioError struct {
	Scenario string
	Err      error
}

func (e *ScenarioError) Error() string {
	return fmt.Sprintf("scenario %s: %v", e.Scenario, e.Err)
}

func (e *ScenarioError) Unwrap() error { return e.Err }

// IsScenarioError reports whether err is a ScenarioError.
func IsScenarioError(err error) bool {
	var se *ScenarioError
	return errors.As(err, &se)
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or fails validation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ScenarioError{Scenario: path, Err: fmt.Errorf("failed to read scenario file: %w", err)}
	}

	s, err := ParseScenario(data)
	if err != nil {
		return nil, &ScenarioError{Scenario: path, Err: err}
	}
	s.Path = path
	return s, nil
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// LoadDir loads every *.yaml and *.yml file in dir, sorted by file name.
// Scenario names must be unique within dir.
func LoadDir(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}

	var scenarios []*Scenario
	seen := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		s, err := LoadScenario(path)
		if err != nil {
			return nil, err
		}
		if other, ok := seen[s.Name]; ok {
			return nil, &ScenarioError{Scenario: path, Err: fmt.Errorf("name %q already used by %s", s.Name, other)}
		}
		seen[s.Name] = path
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Sources) == 0 {
		return fmt.Errorf("sources list is required and must be non-empty")
	}
	if s.RunFor < 0 {
		return fmt.Errorf("run_for must not be negative")
	}

	for i, src := range s.Sources {
		if err := validateSource(src, s.RunFor > 0); err != nil {
			return fmt.Errorf("sources[%d]: %w", i, err)
		}
	}

	switch {
	case len(s.Sources) > 1 && s.Combine == nil:
		return fmt.Errorf("combine is required with more than one source")
	case s.Combine != nil && s.Combine.Op != CombineMerge && s.Combine.Op != CombineSynchronise:
		return fmt.Errorf("combine: unknown op %q", s.Combine.Op)
	}

	for i, st := range s.Pipeline {
		if err := validateStage(st); err != nil {
			return fmt.Errorf("pipeline[%d]: %w", i, err)
		}
	}

	if s.Expect.AtMs != nil && s.Expect.Values != nil && len(s.Expect.AtMs) != len(s.Expect.Values) {
		return fmt.Errorf("expect: at_ms has %d entries, values has %d", len(s.Expect.AtMs), len(s.Expect.Values))
	}
	return nil
}

func validateSource(src SourceSpec, bounded bool) error {
	kinds := 0
	for _, set := range []bool{src.Values != nil, src.Events != nil, src.Ticks != nil} {
		if set {
			kinds++
		}
	}
	if kinds != 1 {
		return fmt.Errorf("exactly one of values, events or ticks is required")
	}

	for i, ev := range src.Events {
		if ev.At < 0 {
			return fmt.Errorf("events[%d]: at must not be negative", i)
		}
	}
	if src.Ticks != nil && src.Ticks.Limit == 0 && src.CloseAt == nil && !bounded {
		return fmt.Errorf("unbounded ticks need limit, close_at or run_for")
	}
	if src.CloseAt != nil && *src.CloseAt < 0 {
		return fmt.Errorf("close_at must not be negative")
	}
	return nil
}

func validateStage(st StageSpec) error {
	if st.Op == "" {
		return fmt.Errorf("op is required")
	}
	if !slices.Contains(stageOps, st.Op) {
		return fmt.Errorf("unknown op %q", st.Op)
	}

	switch st.Op {
	case OpFilter, OpTransform:
		if st.Expr == "" {
			return fmt.Errorf("expr is required for %s", st.Op)
		}
	case OpField:
		if st.Name == "" {
			return fmt.Errorf("name is required for field")
		}
	case OpSwitch:
		if len(st.Cases) == 0 {
			return fmt.Errorf("cases are required for switch")
		}
		if st.Match != "" && st.Match != "first" && st.Match != "all" {
			return fmt.Errorf("match must be first or all, got %q", st.Match)
		}
		labels := make([]string, 0, len(st.Cases))
		for i, c := range st.Cases {
			if c.Label == "" || c.Expr == "" {
				return fmt.Errorf("cases[%d]: label and expr are required", i)
			}
			labels = append(labels, c.Label)
		}
		if !slices.Contains(labels, st.Take) {
			return fmt.Errorf("take must name one of the case labels, got %q", st.Take)
		}
	}
	return nil
}
