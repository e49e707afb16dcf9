package harness

import "github.com/roach88/rivulet/internal/trace"

// Result is the outcome of a scenario run.
type Result struct {
	// Pass indicates overall success: no expectation failed and no
	// expression failed to evaluate.
	Pass bool `json:"pass"`

	// Trace is everything the output stream delivered.
	Trace *trace.Trace `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result with an empty trace.
func NewResult(scenario string) *Result {
	return &Result{
		Pass:   true,
		Trace:  &trace.Trace{Scenario: scenario, Events: []trace.Event{}},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
