package rules

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyExpression   = errors.New("rules: expression must not be empty")
	ErrUnknownEngine     = errors.New("rules: unknown engine")
	ErrEngineUnavailable = errors.New("rules: engine unavailable")
	ErrNotBool           = errors.New("rules: rule must evaluate to a boolean")
)

// EvaluationError captures engine metadata alongside the originating error.
type EvaluationError struct {
	Engine string
	Expr   string
	Unit   string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("rules: %s evaluator %s unit=%s: %v", e.Engine, describeExpression(e.Expr), e.Unit, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

// wrapEvaluationError attaches metadata, filling blanks on an existing
// EvaluationError instead of nesting a second one.
func wrapEvaluationError(engine, expr, unit string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		if evalErr.Unit == "" {
			evalErr.Unit = unit
		}
		return evalErr
	}
	if strings.HasPrefix(err.Error(), "rules:") && unit == "" && expr == "" {
		return err
	}

	return &EvaluationError{
		Engine: engine,
		Expr:   expr,
		Unit:   unit,
		Err:    err,
	}
}
