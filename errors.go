package macromem

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-macromem/pkg/bootstrap"
	"github.com/goliatone/go-macromem/pkg/host"
)

// GlobalScope names the top-level map in errors and events.
const GlobalScope = ""

var (
	// ErrNotFound reports a missing content unit.
	ErrNotFound = host.ErrNotFound
	// ErrKeyNotFound matches every *KeyNotFoundError.
	ErrKeyNotFound = errors.New("macromem: key not found")
	// ErrStoreCorrupt reports store text that does not decode.
	ErrStoreCorrupt = errors.New("macromem: store corrupt")
	// ErrInvalidUTF8 reports a key or string value Encode cannot store
	// unchanged.
	ErrInvalidUTF8 = errors.New("macromem: invalid utf-8")
	// ErrScopeConflict reports a scope name held by a non-object global value.
	ErrScopeConflict = errors.New("macromem: scope conflict")
	// ErrConfiguration matches every *ConfigError.
	ErrConfiguration = bootstrap.ErrConfiguration
)

// ConfigError reports an unusable auto import setting.
type ConfigError = bootstrap.ConfigError

// KeyNotFoundError reports a read or remove of an absent entry.
type KeyNotFoundError struct {
	Scope string
	Key   string
}

func (e *KeyNotFoundError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Scope == GlobalScope {
		return fmt.Sprintf("macromem: global key %q not found", e.Key)
	}
	return fmt.Sprintf("macromem: key %q not found in scope %q", e.Key, e.Scope)
}

func (e *KeyNotFoundError) Is(target error) bool {
	return target == ErrKeyNotFound
}

// Global reports whether the lookup targeted the top-level map.
func (e *KeyNotFoundError) Global() bool {
	return e != nil && e.Scope == GlobalScope
}
