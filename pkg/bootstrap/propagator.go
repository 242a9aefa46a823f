package bootstrap

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-macromem/pkg/activity"
	"github.com/goliatone/go-macromem/pkg/host"
	"github.com/goliatone/go-macromem/pkg/rules"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Config holds the propagation settings.
type Config struct {
	StorageUnitName string
	ModuleUnitName  string
	Mode            string
	CustomList      []string
	Rule            string
	Engine          string
	// Concurrency caps in-flight saves; zero or less means unbounded.
	Concurrency int
}

// Option configures a Propagator.
type Option func(*Propagator)

// WithLogger sets the zap logger used for propagation diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Propagator) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithEmitter attaches an activity emitter for per-unit outcomes.
func WithEmitter(emitter *activity.Emitter) Option {
	return func(p *Propagator) {
		p.emitter = emitter
	}
}

// WithEvaluator overrides the rules evaluator used by ModeRule.
func WithEvaluator(evaluator rules.Evaluator) Option {
	return func(p *Propagator) {
		p.evaluator = evaluator
	}
}

// Propagator runs bootstrap passes against a host.
type Propagator struct {
	host      host.Host
	cfg       Config
	prober    *Prober
	policy    Policy
	configErr error
	evaluator rules.Evaluator
	logger    *zap.Logger
	emitter   *activity.Emitter
}

// NewPropagator resolves cfg into a Policy. Configuration problems are kept
// on the propagator (see ConfigErr) and degrade the policy to ModeNever.
func NewPropagator(h host.Host, cfg Config, opts ...Option) *Propagator {
	p := &Propagator{
		host:   h,
		cfg:    cfg,
		prober: NewProber(cfg.ModuleUnitName),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	p.policy, p.configErr = p.resolvePolicy()
	if p.configErr != nil {
		p.logger.Error("invalid auto import configuration", zap.Error(p.configErr))
	}
	return p
}

func (p *Propagator) resolvePolicy() (Policy, error) {
	mode, err := ParseMode(p.cfg.Mode)
	if err != nil {
		return Policy{Mode: ModeNever}, err
	}
	policy := Policy{Mode: mode, CustomList: append([]string(nil), p.cfg.CustomList...)}
	if mode != ModeRule {
		return policy, nil
	}

	evaluator := p.evaluator
	if evaluator == nil {
		evaluator, err = rules.New(p.cfg.Engine)
		if err != nil {
			return Policy{Mode: ModeNever}, &ConfigError{Field: "autoImportEngine", Value: p.cfg.Engine, Err: err}
		}
	}
	rule, err := evaluator.Compile(strings.TrimSpace(p.cfg.Rule))
	if err != nil {
		return Policy{Mode: ModeNever}, &ConfigError{Field: "autoImportRule", Value: p.cfg.Rule, Err: err}
	}
	policy.Rule = rule
	return policy, nil
}

// Policy returns the resolved policy.
func (p *Propagator) Policy() Policy {
	return p.policy
}

// ConfigErr returns the configuration error found at construction, if any.
func (p *Propagator) ConfigErr() error {
	return p.configErr
}

// Report summarizes one propagation pass. Unit names are sorted.
type Report struct {
	PassID string
	// Bootstrapped units already carried every marker.
	Bootstrapped []string
	// Protected units are the module and store units.
	Protected   []string
	NotSelected []string
	Patched     []string
	Failed      map[string]error
}

// Err combines every per-unit failure, or returns nil.
func (r Report) Err() error {
	names := make([]string, 0, len(r.Failed))
	for name := range r.Failed {
		names = append(names, name)
	}
	sort.Strings(names)
	var err error
	for _, name := range names {
		err = multierr.Append(err, fmt.Errorf("bootstrap: save %q: %w", name, r.Failed[name]))
	}
	return err
}

type patch struct {
	name    string
	content string
}

// Propagate lists every unit, patches the selected ones concurrently and
// waits for all saves to settle. Only a failure to list units is returned;
// per-unit failures land in Report.Failed.
func (p *Propagator) Propagate(ctx context.Context) (Report, error) {
	report := Report{PassID: uuid.NewString(), Failed: map[string]error{}}
	if p.host == nil {
		return report, fmt.Errorf("bootstrap: host is required")
	}

	units, err := p.host.Get(ctx, host.GetRequest{WithContent: true})
	if err != nil {
		return report, fmt.Errorf("bootstrap: list units: %w", err)
	}

	var patches []patch
	for _, unit := range units {
		if p.isProtected(unit.Name) {
			report.Protected = append(report.Protected, unit.Name)
			continue
		}
		markers := p.prober.Probe(unit.Content)
		if !markers.NeedsPatch() {
			report.Bootstrapped = append(report.Bootstrapped, unit.Name)
			continue
		}
		selected, err := p.policy.Selects(unit, markers)
		if err != nil {
			p.logger.Warn("auto import rule failed", zap.String("unit", unit.Name), zap.Error(err))
		}
		if !selected {
			report.NotSelected = append(report.NotSelected, unit.Name)
			continue
		}
		patches = append(patches, patch{name: unit.Name, content: p.prober.Rewrite(unit.Content)})
	}

	var mu sync.Mutex
	var group errgroup.Group
	if p.cfg.Concurrency > 0 {
		group.SetLimit(p.cfg.Concurrency)
	}
	for _, next := range patches {
		group.Go(func() error {
			saveErr := p.host.Save(ctx, next.name, next.content)

			mu.Lock()
			if saveErr != nil {
				report.Failed[next.name] = saveErr
			} else {
				report.Patched = append(report.Patched, next.name)
			}
			mu.Unlock()

			if saveErr != nil {
				p.logger.Error("auto import failed", zap.String("unit", next.name), zap.Error(saveErr))
			} else {
				p.logger.Info("added memory import", zap.String("unit", next.name))
			}
			_ = p.emitter.Emit(ctx, activity.BuildUnitPatchedEvent(activity.UnitEventInput{
				Unit:   next.name,
				PassID: report.PassID,
				Mode:   string(p.policy.Mode),
				Err:    saveErr,
			}))
			// Failures stay in the report so the group never short-circuits.
			return nil
		})
	}
	_ = group.Wait()

	sort.Strings(report.Bootstrapped)
	sort.Strings(report.Protected)
	sort.Strings(report.NotSelected)
	sort.Strings(report.Patched)
	return report, nil
}

func (p *Propagator) isProtected(name string) bool {
	return name == p.prober.Module() || (p.cfg.StorageUnitName != "" && name == p.cfg.StorageUnitName)
}
