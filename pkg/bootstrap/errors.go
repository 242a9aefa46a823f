package bootstrap

import (
	"errors"
	"fmt"
)

// ErrConfiguration matches every ConfigError.
var ErrConfiguration = errors.New("bootstrap: configuration error")

// ConfigError reports an unusable propagation setting. It is never fatal:
// the propagator falls back to ModeNever.
type ConfigError struct {
	Field string
	Value string
	Err   error
}

func (e *ConfigError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("bootstrap: configuration error: %s %q", e.Field, e.Value)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg + ", defaulting to \"never\""
}

func (e *ConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrConfiguration
}
