// Package expr compiles small CUE expressions used by declarative
// scenarios as predicates and transforms.
//
// An expression sees the current value as v:
//
//	v * 2
//	len(v) > 1
//	v.temperature > 30
//
// Results are plain JSON types as produced by trace.Decode.
package expr

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/parser"

	"github.com/roach88/rivulet/internal/trace"
)

var (
	inputPath  = cue.ParsePath("v")
	outputPath = cue.ParsePath("out")
)

// Expr is a compiled expression. Safe for concurrent use.
type Expr struct {
	src  string
	mu   sync.Mutex
	tmpl cue.Value
}

// Compile parses src and prepares it for evaluation.
func Compile(src string) (*Expr, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, &EvalError{Expr: src, Err: errors.New("empty expression")}
	}
	if _, err := parser.ParseExpr("expr", src); err != nil {
		return nil, &EvalError{Expr: src, Err: firstError(err)}
	}

	ctx := cuecontext.New()
	tmpl := ctx.CompileString("v: _\nout: (" + src + ")")
	if err := tmpl.Err(); err != nil {
		return nil, &EvalError{Expr: src, Err: firstError(err)}
	}
	return &Expr{src: src, tmpl: tmpl}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(src string) *Expr {
	e, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return e
}

// String returns the source text.
func (e *Expr) String() string { return e.src }

// Eval evaluates the expression with v bound to the given value.
func (e *Expr) Eval(v any) (any, error) {
	in, err := trace.Normalize(v)
	if err != nil {
		return nil, &EvalError{Expr: e.src, Err: fmt.Errorf("input: %w", err)}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	out := e.tmpl.FillPath(inputPath, in).LookupPath(outputPath)
	if err := out.Err(); err != nil {
		return nil, &EvalError{Expr: e.src, Err: firstError(err)}
	}
	data, err := out.MarshalJSON()
	if err != nil {
		return nil, &EvalError{Expr: e.src, Err: firstError(err)}
	}
	result, err := trace.Decode(data)
	if err != nil {
		return nil, &EvalError{Expr: e.src, Err: err}
	}
	return result, nil
}

// Bool evaluates the expression as a predicate.
func (e *Expr) Bool(v any) (bool, error) {
	out, err := e.Eval(v)
	if err != nil {
		return false, err
	}
	b, ok := out.(bool)
	if !ok {
		return false, &EvalError{Expr: e.src, Err: fmt.Errorf("expected bool, got %T", out)}
	}
	return b, nil
}

// EvalError reports a compile or evaluation failure.
type EvalError struct {
	Expr string
	Err  error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("expr %q: %v", e.Expr, e.Err)
}

func (e *EvalError) Unwrap() error { return e.Err }

// IsEvalError reports whether err is an EvalError.
func IsEvalError(err error) bool {
	var ee *EvalError
	return errors.As(err, &ee)
}

// firstError keeps the first CUE error, which carries the useful message.
func firstError(err error) error {
	if errs := cueerrors.Errors(err); len(errs) > 0 {
		return errs[0]
	}
	return err
}
