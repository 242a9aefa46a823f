package macromem

import (
	"github.com/goliatone/go-macromem/pkg/activity"
	"github.com/goliatone/go-macromem/pkg/rules"
	"go.uber.org/zap"
)

// Option configures a Memory.
type Option func(*memoryConfig)

type memoryConfig struct {
	logger          *zap.Logger
	sources         IdentitySources
	fallback        string
	hooks           activity.Hooks
	activityChannel string
	evaluator       rules.Evaluator
}

func applyOptions(opts []Option) memoryConfig {
	cfg := memoryConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	return cfg
}

// WithLogger sets the zap logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *memoryConfig) {
		cfg.logger = logger
	}
}

// WithLocator sets the consuming unit's module URL, the strongest identity
// source.
func WithLocator(locator string) Option {
	return func(cfg *memoryConfig) {
		cfg.sources.Locator = locator
	}
}

// WithLegacyName sets the unit name reported by older hosts.
func WithLegacyName(name string) Option {
	return func(cfg *memoryConfig) {
		cfg.sources.LegacyName = name
	}
}

// WithFallbackIdentity overrides FallbackIdentity.
func WithFallbackIdentity(name string) Option {
	return func(cfg *memoryConfig) {
		cfg.fallback = name
	}
}

// WithActivityHooks attaches hooks notified on store creation, entry
// mutations and bootstrap saves. Nil hooks are dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := activity.CloneHooks(hooks)
	return func(cfg *memoryConfig) {
		cfg.hooks = normalized
	}
}

// WithActivityChannel overrides activity.DefaultChannel.
func WithActivityChannel(channel string) Option {
	return func(cfg *memoryConfig) {
		cfg.activityChannel = channel
	}
}

// WithRuleEvaluator overrides the evaluator used by the rule auto import
// mode.
func WithRuleEvaluator(evaluator rules.Evaluator) Option {
	return func(cfg *memoryConfig) {
		cfg.evaluator = evaluator
	}
}
