package harness

import (
	"fmt"

	"github.com/roach88/rivulet/internal/expr"
)

// Lint compiles every expression in a loaded scenario without running
// it. It returns one error per expression that does not compile.
func Lint(s *Scenario) []error {
	var errs []error
	check := func(where, src string) {
		if src == "" {
			return
		}
		if _, err := expr.Compile(src); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", where, err))
		}
	}

	for i, st := range s.Pipeline {
		check(fmt.Sprintf("pipeline[%d] %s", i, st.Op), st.Expr)
		for j, c := range st.Cases {
			check(fmt.Sprintf("pipeline[%d] %s cases[%d]", i, st.Op, j), c.Expr)
		}
	}
	return errs
}
