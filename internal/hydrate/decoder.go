package hydrate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNilValue is returned when the stored value is JSON null and the target
// cannot represent it.
var ErrNilValue = errors.New("hydrate: value is null")

// Context identifies the entry being decoded.
type Context struct {
	Scope string
	Key   string
}

func (c Context) String() string {
	if c.Scope == "" {
		return fmt.Sprintf("global key %q", c.Key)
	}
	return fmt.Sprintf("key %q in scope %q", c.Key, c.Scope)
}

// Validator is implemented by targets that check themselves after decoding.
type Validator interface {
	Validate() error
}

// PreHook lets callers normalise the stored value before decoding.
type PreHook func(Context, any) (any, error)

// PostHook lets callers adjust or validate the decoded value.
type PostHook[T any] func(Context, *T) error

// DecoderOption configures a Decoder instance.
type DecoderOption[T any] func(*Decoder[T])

// Decoder converts decoded store values (maps, slices, scalars) into T.
type Decoder[T any] struct {
	preHooks     []PreHook
	postHooks    []PostHook[T]
	configureDec []func(*json.Decoder)
	allowNull    bool
}

// WithPreHook applies hook prior to decoding.
func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.preHooks = append(d.preHooks, hook)
	}
}

// WithPostHook applies hook after decoding completes.
func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.postHooks = append(d.postHooks, hook)
	}
}

// WithUseNumber enables json.Decoder.UseNumber during decoding.
func WithUseNumber[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.configureDec = append(d.configureDec, func(dec *json.Decoder) {
			dec.UseNumber()
		})
	}
}

// WithDisallowUnknownFields invokes json.Decoder.DisallowUnknownFields.
func WithDisallowUnknownFields[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.configureDec = append(d.configureDec, func(dec *json.Decoder) {
			dec.DisallowUnknownFields()
		})
	}
}

// WithAllowNull decodes a null value into the zero T instead of failing.
func WithAllowNull[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.allowNull = true
	}
}

func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode converts value into T applying configured hooks. When *T
// implements Validator it runs last.
func (d *Decoder[T]) Decode(ctx Context, value any) (T, error) {
	var zero T

	current := value
	for _, hook := range d.preHooks {
		if hook == nil {
			continue
		}
		next, err := hook(ctx, current)
		if err != nil {
			return zero, fmt.Errorf("hydrate: pre-hook for %s failed: %w", ctx, err)
		}
		current = next
	}

	if current == nil && !d.allowNull {
		return zero, fmt.Errorf("%w: %s", ErrNilValue, ctx)
	}

	buffer, err := json.Marshal(current)
	if err != nil {
		return zero, fmt.Errorf("hydrate: marshal %s: %w", ctx, err)
	}
	decoder := json.NewDecoder(bytes.NewReader(buffer))
	for _, configure := range d.configureDec {
		if configure != nil {
			configure(decoder)
		}
	}
	var result T
	if err := decoder.Decode(&result); err != nil {
		return zero, fmt.Errorf("hydrate: decode %s: %w", ctx, err)
	}

	for _, hook := range d.postHooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, &result); err != nil {
			return zero, fmt.Errorf("hydrate: post-hook for %s failed: %w", ctx, err)
		}
	}

	if v, ok := any(&result).(Validator); ok {
		if err := v.Validate(); err != nil {
			return zero, fmt.Errorf("hydrate: validate %s: %w", ctx, err)
		}
	}

	return result, nil
}

// Decode is shorthand for NewDecoder[T](opts...).Decode(ctx, value).
func Decode[T any](ctx Context, value any, opts ...DecoderOption[T]) (T, error) {
	return NewDecoder[T](opts...).Decode(ctx, value)
}
