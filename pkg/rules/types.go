// Package rules evaluates unit selection expressions for the bootstrap
// propagator. Three engines are available: expr (default), CEL, and a goja
// backed JavaScript engine compiled in with the js_eval build tag.
//
// Every engine sees the same bindings:
//
//	name     string     unit name
//	active   bool       host active flag
//	now      time.Time  evaluation time
//	vars     map        caller supplied extras (also bound at top level)
package rules

import (
	"fmt"
	"time"
)

// Engine names accepted by New.
const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJS   = "js"
)

// Context carries the unit facts a rule is evaluated against.
type Context struct {
	Unit   string
	Active bool
	Vars   map[string]any
	Now    *time.Time
}

func (ctx Context) withDefaults() Context {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Vars == nil {
		ctx.Vars = map[string]any{}
	}
	return ctx
}

func (ctx Context) timestamp() time.Time {
	return *ctx.withDefaults().Now
}

func (ctx Context) label() string {
	if ctx.Unit == "" {
		return "unknown"
	}
	return ctx.Unit
}

// bindings flattens ctx into the variable set shared by all engines.
func (ctx Context) bindings() map[string]any {
	ctx = ctx.withDefaults()
	out := make(map[string]any, len(ctx.Vars)+4)
	for key, value := range ctx.Vars {
		out[key] = value
	}
	out["name"] = ctx.Unit
	out["active"] = ctx.Active
	out["now"] = ctx.timestamp()
	out["vars"] = ctx.Vars
	return out
}

// Evaluator executes expressions against a unit context.
type Evaluator interface {
	Evaluate(ctx Context, expr string) (any, error)
	Compile(expr string) (CompiledRule, error)
}

// CompiledRule is a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx Context) (any, error)
}

// ProgramCache stores compiled programs keyed by expression.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// Option configures an evaluator.
type Option func(*config)

type config struct {
	cache ProgramCache
}

// WithProgramCache wires a ProgramCache into the evaluator.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *config) {
		cfg.cache = cache
	}
}

func applyOptions(opts []Option) config {
	cfg := config{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// New returns the evaluator registered under engine. An empty engine selects
// expr.
func New(engine string, opts ...Option) (Evaluator, error) {
	switch engine {
	case "", EngineExpr:
		return NewExprEvaluator(opts...), nil
	case EngineCEL:
		return NewCELEvaluator(opts...), nil
	case EngineJS:
		if !jsEvaluatorAvailable() {
			return nil, fmt.Errorf("%w: %s (build with -tags js_eval)", ErrEngineUnavailable, engine)
		}
		return NewJSEvaluator(opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, engine)
	}
}

// Match evaluates rule and requires a boolean result.
func Match(rule CompiledRule, ctx Context) (bool, error) {
	if rule == nil {
		return false, fmt.Errorf("rules: compiled rule is nil")
	}
	value, err := rule.Evaluate(ctx)
	if err != nil {
		return false, err
	}
	matched, ok := value.(bool)
	if !ok {
		return false, &EvaluationError{Unit: ctx.label(), Err: fmt.Errorf("%w, got %T", ErrNotBool, value)}
	}
	return matched, nil
}
