package harness

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/rivulet/internal/combinators"
	"github.com/roach88/rivulet/internal/operators"
	"github.com/roach88/rivulet/internal/reactive"
	"github.com/roach88/rivulet/internal/sched"
)

// RunOption configures Run.
type RunOption func(*runConfig)

type runConfig struct {
	logger    *slog.Logger
	stepLimit int
}

// WithLogger sets the logger handed to every stream of the run.
// Default: logs are discarded.
func WithLogger(l *slog.Logger) RunOption {
	return func(c *runConfig) {
		c.logger = l
	}
}

// WithStepLimit bounds the tasks the virtual clock may run.
//
// Default: sched.DefaultStepLimit
func WithStepLimit(limit int) RunOption {
	return func(c *runConfig) {
		c.stepLimit = limit
	}
}

type runner struct {
	scenario *Scenario
	clock    *sched.Virtual
	logger   *slog.Logger
	opts     []reactive.Option
	result   *Result
}

// Run executes a scenario on a fresh virtual clock and returns the result.
//
// Execution flow:
// 1. Build the sources, the combinator and the pipeline
// 2. Subscribe a recorder to the pipeline output
// 3. Run the clock for run_for, or until no timer is left
// 4. Check the expectations against the recorded trace
//
// A returned error means the scenario could not be built or run. Failed
// expectations are reported in the Result.
func Run(s *Scenario, opts ...RunOption) (*Result, error) {
	cfg := runConfig{
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		stepLimit: sched.DefaultStepLimit,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	clock := sched.NewVirtual(sched.WithStepLimit(cfg.stepLimit))
	logger := cfg.logger.With("scenario", s.Name)
	r := &runner{
		scenario: s,
		clock:    clock,
		logger:   logger,
		opts: []reactive.Option{
			reactive.WithScheduler(clock),
			reactive.WithIDGenerator(reactive.NewSequenceGenerator(s.Name)),
			reactive.WithLogger(logger),
		},
		result: NewResult(s.Name),
	}

	out, err := r.build()
	if err != nil {
		return nil, &ScenarioError{Scenario: s.Name, Err: err}
	}

	unsubscribe := out.On(r.record)
	defer unsubscribe()

	if s.RunFor > 0 {
		err = clock.Advance(s.RunFor.Std())
	} else {
		err = clock.RunUntilIdle()
	}
	if err != nil {
		return nil, &ScenarioError{Scenario: s.Name, Err: fmt.Errorf("run: %w", err)}
	}

	for _, err := range CheckExpectations(s.Expect, r.result.Trace) {
		r.result.AddError(err.Error())
	}

	r.logger.Debug("scenario finished",
		"elapsed", clock.Elapsed(),
		"events", len(r.result.Trace.Events),
		"pass", r.result.Pass,
	)
	return r.result, nil
}

func (r *runner) record(m reactive.Message[any]) {
	at := r.clock.Elapsed()
	if m.IsValue() {
		if err := r.result.Trace.AddValue(at, m.Value); err != nil {
			r.result.AddError(err.Error())
		}
		return
	}
	r.result.Trace.AddSignal(at, m.Context, m.Failed())
}

// named returns the run options plus a stream name.
func (r *runner) named(format string, args ...any) []reactive.Option {
	return slices.Concat(r.opts, []reactive.Option{reactive.WithName(fmt.Sprintf(format, args...))})
}

func (r *runner) build() (reactive.Stream[any], error) {
	sources := make([]reactive.Stream[any], len(r.scenario.Sources))
	for i, spec := range r.scenario.Sources {
		src, err := r.source(i, spec)
		if err != nil {
			return nil, fmt.Errorf("sources[%d]: %w", i, err)
		}
		sources[i] = src
	}

	out := sources[0]
	if r.scenario.Combine != nil {
		combined, err := r.combine(*r.scenario.Combine, sources)
		if err != nil {
			return nil, fmt.Errorf("combine: %w", err)
		}
		out = combined
	}

	for i, st := range r.scenario.Pipeline {
		next, err := r.stage(i, st, out)
		if err != nil {
			return nil, fmt.Errorf("pipeline[%d] %s: %w", i, st.Op, err)
		}
		out = next
	}
	return out, nil
}

func (r *runner) source(i int, spec SourceSpec) (reactive.Stream[any], error) {
	opts := r.named("source[%d]", i)

	var (
		stream reactive.Stream[any]
		closer reactive.Disposable
	)
	switch {
	case spec.Values != nil:
		seq := reactive.FromSlice(spec.Values, opts...)
		stream, closer = seq, seq

	case spec.Events != nil:
		w := reactive.NewValue[any](nil, opts...)
		for _, ev := range spec.Events {
			r.clock.AfterFunc(ev.At.Std(), func() {
				// Writes after close_at are dropped like any write to a
				// disposed stream.
				_ = w.Set(ev.Value)
			})
		}
		stream, closer = w, w

	case spec.Ticks != nil:
		ticks, err := reactive.Ticks(reactive.TicksOptions{
			Interval: spec.Ticks.Interval.Std(),
			Limit:    spec.Ticks.Limit,
		}, opts...)
		if err != nil {
			return nil, err
		}
		b := operators.Transform[int, any](ticks, func(n int) any { return n }, r.opts...)
		stream, closer = b, b

	default:
		return nil, fmt.Errorf("no source kind set")
	}

	if spec.CloseAt != nil {
		r.clock.AfterFunc(spec.CloseAt.Std(), func() {
			closer.Dispose("closed by scenario")
		})
	}
	return stream, nil
}

func (r *runner) combine(spec CombineSpec, sources []reactive.Stream[any]) (reactive.Stream[any], error) {
	opts := r.named("combine.%s", spec.Op)

	switch spec.Op {
	case CombineMerge:
		merged, err := combinators.MergeSnapshot(sources, opts...)
		if err != nil {
			return nil, err
		}
		return operators.Transform[[]combinators.Slot[any], any](merged, func(slots []combinators.Slot[any]) any {
			out := make([]any, len(slots))
			for i, s := range slots {
				if s.Ok {
					out[i] = s.Value
				}
			}
			return out
		}, r.opts...), nil

	case CombineSynchronise:
		joined, err := combinators.Synchronise(sources, combinators.SyncOptions{Strict: spec.Strict}, opts...)
		if err != nil {
			return nil, err
		}
		return operators.Transform[[]any, any](joined, func(v []any) any { return v }, r.opts...), nil

	default:
		return nil, fmt.Errorf("unknown op %q", spec.Op)
	}
}
