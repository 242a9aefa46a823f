package macromem

import (
	"context"

	"github.com/goliatone/go-macromem/internal/hydrate"
)

// Reader is implemented by *Memory and *Scope.
type Reader interface {
	Name() string
	Read(ctx context.Context, key string) (any, error)
	ReadGlobal(ctx context.Context, key string) (any, error)
}

// DecodeContext identifies the entry handed to decode hooks. Scope is empty
// for global entries.
type DecodeContext = hydrate.Context

// DecodeOption configures how ReadAs and ReadGlobalAs decode a value.
type DecodeOption[T any] = hydrate.DecoderOption[T]

// DecodeUseNumber keeps numbers as json.Number instead of float64.
func DecodeUseNumber[T any]() DecodeOption[T] {
	return hydrate.WithUseNumber[T]()
}

// DecodeStrict rejects object fields T does not declare.
func DecodeStrict[T any]() DecodeOption[T] {
	return hydrate.WithDisallowUnknownFields[T]()
}

// DecodeAllowNull decodes a stored null into the zero T.
func DecodeAllowNull[T any]() DecodeOption[T] {
	return hydrate.WithAllowNull[T]()
}

// DecodePreHook rewrites the stored value before it is decoded.
func DecodePreHook[T any](hook func(DecodeContext, any) (any, error)) DecodeOption[T] {
	return hydrate.WithPreHook[T](hook)
}

// DecodePostHook adjusts or checks the decoded value.
func DecodePostHook[T any](hook func(DecodeContext, *T) error) DecodeOption[T] {
	return hydrate.WithPostHook[T](hook)
}

// ReadAs reads key from r's scope and decodes it into T. Stored numbers are
// float64 until decoded, so ReadAs[int] is the usual way to get an int back.
// If *T has a Validate() error method it is called last.
func ReadAs[T any](ctx context.Context, r Reader, key string, opts ...DecodeOption[T]) (T, error) {
	value, err := r.Read(ctx, key)
	if err != nil {
		var zero T
		return zero, err
	}
	return hydrate.Decode[T](hydrate.Context{Scope: r.Name(), Key: key}, value, opts...)
}

// ReadGlobalAs is ReadAs for a top-level entry.
func ReadGlobalAs[T any](ctx context.Context, r Reader, key string, opts ...DecodeOption[T]) (T, error) {
	value, err := r.ReadGlobal(ctx, key)
	if err != nil {
		var zero T
		return zero, err
	}
	return hydrate.Decode[T](hydrate.Context{Scope: GlobalScope, Key: key}, value, opts...)
}
