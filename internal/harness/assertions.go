package harness

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/roach88/rivulet/internal/trace"
)

// AssertionError is returned when an expectation fails.
// It includes the full trace to help debug the failure.
type AssertionError struct {
	Field    string // expectation that failed: values, at_ms, closed, failed
	Expected string
	Actual   string
	Trace    *trace.Trace
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Expectation failed: %s\n", e.Field)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.Trace != nil && len(e.Trace.Events) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n%s", e.Trace.String())
	}
	return buf.String()
}

// CheckExpectations compares a trace with an expectation and returns one
// error per failed field.
func CheckExpectations(exp Expectation, tr *trace.Trace) []error {
	var errs []error

	if exp.Values != nil {
		if err := assertValues(exp.Values, tr); err != nil {
			errs = append(errs, err)
		}
	}
	if exp.AtMs != nil {
		if got := tr.ValueTimes(); !slices.Equal(exp.AtMs, got) {
			errs = append(errs, &AssertionError{
				Field:    "at_ms",
				Expected: fmt.Sprint(exp.AtMs),
				Actual:   fmt.Sprint(got),
				Trace:    tr,
			})
		}
	}

	term, closed := tr.Terminal()
	if exp.Closed != nil && *exp.Closed != closed {
		errs = append(errs, &AssertionError{
			Field:    "closed",
			Expected: fmt.Sprint(*exp.Closed),
			Actual:   fmt.Sprint(closed),
			Trace:    tr,
		})
	}
	if exp.Failed != nil {
		failed := closed && term.Kind == trace.KindFailed
		if *exp.Failed != failed {
			errs = append(errs, &AssertionError{
				Field:    "failed",
				Expected: fmt.Sprint(*exp.Failed),
				Actual:   fmt.Sprintf("%v (%s)", failed, describeTerminal(term, closed)),
				Trace:    tr,
			})
		}
	}
	return errs
}

func assertValues(expected []any, tr *trace.Trace) error {
	want, err := trace.Normalize(expected)
	if err != nil {
		return &AssertionError{Field: "values", Expected: fmt.Sprint(expected), Actual: "expectation not encodable: " + err.Error()}
	}
	got := tr.Values()
	if reflect.DeepEqual(want, got) {
		return nil
	}

	wantJSON, _ := trace.Marshal(want)
	gotJSON, _ := trace.Marshal(got)
	return &AssertionError{
		Field:    "values",
		Expected: string(wantJSON),
		Actual:   string(gotJSON),
		Trace:    tr,
	}
}

func describeTerminal(e trace.Event, closed bool) string {
	if !closed {
		return "still open"
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Context)
}
