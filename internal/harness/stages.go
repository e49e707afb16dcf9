package harness

import (
	"fmt"
	"time"

	"github.com/roach88/rivulet/internal/combinators"
	"github.com/roach88/rivulet/internal/expr"
	"github.com/roach88/rivulet/internal/operators"
	"github.com/roach88/rivulet/internal/reactive"
)

func (r *runner) stage(i int, st StageSpec, src reactive.Stream[any]) (reactive.Stream[any], error) {
	opts := r.named("pipeline[%d].%s", i, st.Op)

	switch st.Op {
	case OpBatch:
		b, err := operators.Batch(src, operators.BatchOptions{
			Quantity:      st.Quantity,
			Elapsed:       st.Elapsed.Std(),
			DropRemainder: st.DropRemainder,
		}, opts...)
		if err != nil {
			return nil, err
		}
		return operators.Transform[[]any, any](b, func(v []any) any { return v }, r.opts...), nil

	case OpFilter:
		e, err := expr.Compile(st.Expr)
		if err != nil {
			return nil, err
		}
		return operators.Filter(src, r.predicate(i, st.Op, e), opts...), nil

	case OpTransform:
		e, err := expr.Compile(st.Expr)
		if err != nil {
			return nil, err
		}
		return r.evaluate(i, st.Op, e, src, opts), nil

	case OpField:
		objects := operators.Transform[any, map[string]any](src, func(v any) map[string]any {
			obj, _ := v.(map[string]any)
			return obj
		}, r.opts...)
		if st.Default != nil {
			return operators.FieldOr(objects, st.Name, st.Default, opts...), nil
		}
		return operators.Field[any](objects, st.Name, opts...), nil

	case OpDebounce:
		return operators.Debounce(src, operators.DebounceOptions{
			Elapsed:           st.Elapsed.Std(),
			EmitPendingOnDone: st.EmitPending,
		}, opts...)

	case OpThrottle:
		return operators.Throttle(src, operators.ThrottleOptions{Elapsed: st.Elapsed.Std()}, opts...)

	case OpElapsed:
		annotated := operators.AnnotateElapsed(src, opts...)
		return operators.Transform[operators.Annotated[any, time.Duration], any](annotated, func(a operators.Annotated[any, time.Duration]) any {
			return map[string]any{
				"value":      a.Value,
				"elapsed_ms": a.Annotation.Milliseconds(),
			}
		}, r.opts...), nil

	case OpElement:
		eo := operators.ElementOptions[any]{Index: st.Index}
		if st.Expr != "" {
			e, err := expr.Compile(st.Expr)
			if err != nil {
				return nil, err
			}
			eo.Predicate = r.predicate(i, st.Op, e)
		}
		return operators.Element(src, eo, opts...)

	case OpSwitch:
		cases := make([]combinators.Case[any], len(st.Cases))
		for j, c := range st.Cases {
			e, err := expr.Compile(c.Expr)
			if err != nil {
				return nil, fmt.Errorf("cases[%d]: %w", j, err)
			}
			cases[j] = combinators.Case[any]{Label: c.Label, Predicate: r.predicate(i, st.Op, e)}
		}
		match := combinators.MatchFirst
		if st.Match == combinators.MatchAll.String() {
			match = combinators.MatchAll
		}
		sw, err := combinators.NewSwitcher(src, cases, combinators.SwitcherOptions{Match: match}, opts...)
		if err != nil {
			return nil, err
		}
		out := sw.Out(st.Take)
		if out == nil {
			return nil, fmt.Errorf("no case labelled %q", st.Take)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unknown op %q", st.Op)
	}
}

// predicate adapts an expression to a stream predicate. A value the
// expression cannot evaluate is dropped and fails the run.
func (r *runner) predicate(i int, op string, e *expr.Expr) func(any) bool {
	return func(v any) bool {
		ok, err := e.Bool(v)
		if err != nil {
			r.exprFailed(i, op, err)
			return false
		}
		return ok
	}
}

// evaluate maps every value through e, dropping values it cannot
// evaluate.
func (r *runner) evaluate(i int, op string, e *expr.Expr, src reactive.Stream[any], opts []reactive.Option) reactive.Stream[any] {
	var b *reactive.Bridge[any, any]
	b = reactive.NewBridge[any, any](src, op, reactive.BridgeConfig[any]{
		OnValue: func(v any) {
			out, err := e.Eval(v)
			if err != nil {
				r.exprFailed(i, op, err)
				return
			}
			_ = b.Publish(out)
		},
	}, opts...)
	return b
}

func (r *runner) exprFailed(i int, op string, err error) {
	r.logger.Warn("expression failed", "stage", i, "op", op, "error", err)
	r.result.AddError(fmt.Sprintf("pipeline[%d] %s: %v", i, op, err))
}
