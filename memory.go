package macromem

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-macromem/pkg/activity"
	"github.com/goliatone/go-macromem/pkg/bootstrap"
	"github.com/goliatone/go-macromem/pkg/host"
	"github.com/goliatone/go-macromem/pkg/rules"
	"go.uber.org/zap"
)

// Memory is the scoped key-value engine bound to one caller identity.
//
// A Memory holds no cached document: every call fetches the store unit, so
// values written by other units are visible immediately. It is safe to call
// from several goroutines in the sense that the host sees well-formed Get and
// Save calls; concurrent mutations still race (see the package doc).
type Memory struct {
	host      host.Host
	cfg       Config
	identity  string
	logger    *zap.Logger
	emitter   *activity.Emitter
	evaluator rules.Evaluator
}

// New builds a Memory without touching the host. The caller identity is
// resolved here once.
func New(h host.Host, cfg Config, opts ...Option) (*Memory, error) {
	if h == nil {
		return nil, fmt.Errorf("macromem: host is required")
	}
	options := applyOptions(opts)
	m := &Memory{
		host:      h,
		cfg:       cfg.Normalize(),
		identity:  ResolveIdentity(options.sources, options.fallback),
		logger:    options.logger,
		evaluator: options.evaluator,
	}
	if len(options.hooks) > 0 {
		m.emitter = activity.NewEmitter(options.hooks, activity.Config{
			Enabled: true,
			Channel: options.activityChannel,
		})
	}
	return m, nil
}

// Identity returns the caller identity, the default scope name.
func (m *Memory) Identity() string {
	return m.identity
}

// Name returns the default scope name. It equals Identity.
func (m *Memory) Name() string {
	return m.identity
}

// Config returns the normalized configuration.
func (m *Memory) Config() Config {
	return m.cfg
}

// Init creates the store unit when the host reports it missing. Any other
// failure to fetch it is returned untouched so an unreachable host never
// overwrites existing data.
func (m *Memory) Init(ctx context.Context) (bool, error) {
	_, err := host.GetOne(ctx, m.host, m.cfg.StorageUnitName)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, host.ErrNotFound) {
		return false, fmt.Errorf("macromem: check store unit %q: %w", m.cfg.StorageUnitName, err)
	}

	if err := m.store(ctx, NewStoreDocument()); err != nil {
		return false, err
	}
	m.logger.Info("memory storage created", zap.String("unit", m.cfg.StorageUnitName))
	m.emit(ctx, activity.BuildStoreCreatedEvent(m.cfg.StorageUnitName, m.identity))

	if _, err := m.PrintGlobal(ctx); err != nil {
		m.logger.Warn("memory storage unreadable after create", zap.String("unit", m.cfg.StorageUnitName), zap.Error(err))
	}
	return true, nil
}

// Read returns key from the caller's scope.
func (m *Memory) Read(ctx context.Context, key string) (any, error) {
	return m.readEntry(ctx, m.identity, key)
}

// Write sets key in the caller's scope, creating the scope if needed, and
// returns value.
func (m *Memory) Write(ctx context.Context, key string, value any) (any, error) {
	return m.writeEntry(ctx, m.identity, key, value)
}

// Remove deletes key from the caller's scope and returns key.
func (m *Memory) Remove(ctx context.Context, key string) (string, error) {
	return m.removeEntry(ctx, m.identity, key)
}

// Print returns the caller's scope. A scope never written reports a
// *KeyNotFoundError for the scope name.
func (m *Memory) Print(ctx context.Context) (Document, error) {
	return m.printScope(ctx, m.identity)
}

// ReadGlobal returns a top-level entry. Scope maps are top-level entries too.
func (m *Memory) ReadGlobal(ctx context.Context, key string) (any, error) {
	return m.readEntry(ctx, GlobalScope, key)
}

// WriteGlobal sets a top-level entry.
func (m *Memory) WriteGlobal(ctx context.Context, key string, value any) (any, error) {
	return m.writeEntry(ctx, GlobalScope, key, value)
}

// RemoveGlobal deletes a top-level entry.
func (m *Memory) RemoveGlobal(ctx context.Context, key string) (string, error) {
	return m.removeEntry(ctx, GlobalScope, key)
}

// PrintGlobal returns the whole store, info record included.
func (m *Memory) PrintGlobal(ctx context.Context) (Document, error) {
	return m.printScope(ctx, GlobalScope)
}

// Info returns the metadata record seeded at creation.
func (m *Memory) Info(ctx context.Context) (map[string]any, error) {
	value, err := m.ReadGlobal(ctx, InfoKey)
	if err != nil {
		return nil, err
	}
	info, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %T", ErrStoreCorrupt, InfoKey, value)
	}
	return info, nil
}

// Propagate runs one bootstrap pass with the configured auto import mode.
func (m *Memory) Propagate(ctx context.Context) (bootstrap.Report, error) {
	opts := []bootstrap.Option{
		bootstrap.WithLogger(m.logger.Named("bootstrap")),
		bootstrap.WithEmitter(m.emitter),
	}
	if m.evaluator != nil {
		opts = append(opts, bootstrap.WithEvaluator(m.evaluator))
	}
	return bootstrap.NewPropagator(m.host, m.cfg.bootstrapConfig(), opts...).Propagate(ctx)
}

func (m *Memory) readEntry(ctx context.Context, scope, key string) (any, error) {
	doc, err := m.load(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := scopeEntries(doc, scope)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, &KeyNotFoundError{Scope: scope, Key: key}
		}
		return nil, err
	}
	value, ok := entries[key]
	if !ok {
		return nil, &KeyNotFoundError{Scope: scope, Key: key}
	}
	m.logger.Info("memory read", zap.String("scope", scope), zap.String("key", key), zap.Any("value", value))
	return value, nil
}

func (m *Memory) writeEntry(ctx context.Context, scope, key string, value any) (any, error) {
	doc, err := m.load(ctx)
	if err != nil {
		return nil, err
	}
	if scope == GlobalScope {
		doc[key] = value
	} else {
		entries, err := scopeEntries(doc, scope)
		switch {
		case errors.Is(err, ErrKeyNotFound):
			entries = map[string]any{}
			doc[scope] = entries
		case err != nil:
			return nil, err
		}
		entries[key] = value
	}
	if err := m.store(ctx, doc); err != nil {
		return nil, err
	}

	m.logger.Debug("memory write", zap.String("scope", scope), zap.String("key", key), zap.Any("value", value))
	m.emit(ctx, activity.BuildEntryWrittenEvent(activity.EntryEventInput{
		Actor:  m.identity,
		Scope:  scope,
		Global: scope == GlobalScope,
		Key:    key,
		Value:  value,
	}))
	return value, nil
}

func (m *Memory) removeEntry(ctx context.Context, scope, key string) (string, error) {
	doc, err := m.load(ctx)
	if err != nil {
		return "", err
	}
	entries, err := scopeEntries(doc, scope)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return "", &KeyNotFoundError{Scope: scope, Key: key}
		}
		return "", err
	}
	previous, ok := entries[key]
	if !ok {
		return "", &KeyNotFoundError{Scope: scope, Key: key}
	}
	delete(entries, key)
	if err := m.store(ctx, doc); err != nil {
		return "", err
	}

	m.logger.Warn("memory remove", zap.String("scope", scope), zap.String("key", key))
	m.emit(ctx, activity.BuildEntryRemovedEvent(activity.EntryEventInput{
		Actor:  m.identity,
		Scope:  scope,
		Global: scope == GlobalScope,
		Key:    key,
		Value:  previous,
	}))
	return key, nil
}

func (m *Memory) printScope(ctx context.Context, scope string) (Document, error) {
	doc, err := m.load(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := scopeEntries(doc, scope)
	if err != nil {
		return nil, err
	}
	m.logger.Info("memory print", zap.String("scope", scope), zap.Any("entries", entries))
	return Document(entries), nil
}

// scopeEntries returns the map holding scope's entries. For GlobalScope that
// is the document itself. A missing scope reports a *KeyNotFoundError for
// the scope name in the global map.
func scopeEntries(doc Document, scope string) (map[string]any, error) {
	if scope == GlobalScope {
		return doc, nil
	}
	raw, ok := doc[scope]
	if !ok {
		return nil, &KeyNotFoundError{Scope: GlobalScope, Key: scope}
	}
	entries, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %q holds %T", ErrScopeConflict, scope, raw)
	}
	return entries, nil
}

func (m *Memory) load(ctx context.Context) (Document, error) {
	unit, err := host.GetOne(ctx, m.host, m.cfg.StorageUnitName)
	if err != nil {
		return nil, fmt.Errorf("macromem: load store unit %q: %w", m.cfg.StorageUnitName, err)
	}
	doc, err := Decode(unit.Content)
	if err != nil {
		return nil, fmt.Errorf("macromem: decode store unit %q: %w", m.cfg.StorageUnitName, err)
	}
	return doc, nil
}

func (m *Memory) store(ctx context.Context, doc Document) error {
	text, err := Encode(doc)
	if err != nil {
		return err
	}
	if err := m.host.Save(ctx, m.cfg.StorageUnitName, text); err != nil {
		return fmt.Errorf("macromem: save store unit %q: %w", m.cfg.StorageUnitName, err)
	}
	return nil
}

func (m *Memory) emit(ctx context.Context, event activity.Event) {
	if err := m.emitter.Emit(ctx, event); err != nil {
		m.logger.Warn("activity hook failed", zap.String("verb", event.Verb), zap.Error(err))
	}
}
