package host

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when a named unit does not exist.
var ErrNotFound = errors.New("host: unit not found")

// Unit is one named content unit as reported by the host.
type Unit struct {
	Name    string `json:"name"`
	Content string `json:"content,omitempty"`
	Active  bool   `json:"active"`
}

// GetRequest selects which units Get returns. An empty Name lists every unit.
type GetRequest struct {
	Name        string
	WithContent bool
}

// Host is the content-unit API the store depends on.
type Host interface {
	Get(ctx context.Context, req GetRequest) ([]Unit, error)
	Save(ctx context.Context, name, content string) error
}

// NotFoundError reports the missing unit name and matches ErrNotFound.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("host: unit %q not found", e.Name)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// GetOne fetches a single unit with its content.
func GetOne(ctx context.Context, h Host, name string) (Unit, error) {
	if h == nil {
		return Unit{}, fmt.Errorf("host: host is required")
	}
	units, err := h.Get(ctx, GetRequest{Name: name, WithContent: true})
	if err != nil {
		return Unit{}, err
	}
	if len(units) == 0 {
		return Unit{}, &NotFoundError{Name: name}
	}
	return units[0], nil
}
