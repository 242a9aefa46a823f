package host

import (
	"context"
	"sort"
	"sync"
)

// SaveCall records one Save issued against a MemoryHost.
type SaveCall struct {
	Name    string
	Content string
}

// MemoryHost is a minimal in-memory Host intended for tests and examples.
// Units saved for the first time are marked active, the same way a device
// activates a freshly uploaded macro.
type MemoryHost struct {
	mu       sync.RWMutex
	units    map[string]Unit
	saves    []SaveCall
	saveErrs map[string]error
}

func NewMemoryHost(units ...Unit) *MemoryHost {
	h := &MemoryHost{
		units:    make(map[string]Unit, len(units)),
		saveErrs: map[string]error{},
	}
	for _, unit := range units {
		h.units[unit.Name] = unit
	}
	return h
}

func (h *MemoryHost) Get(_ context.Context, req GetRequest) ([]Unit, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if req.Name != "" {
		unit, ok := h.units[req.Name]
		if !ok {
			return nil, &NotFoundError{Name: req.Name}
		}
		return []Unit{project(unit, req.WithContent)}, nil
	}

	names := make([]string, 0, len(h.units))
	for name := range h.units {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Unit, 0, len(names))
	for _, name := range names {
		out = append(out, project(h.units[name], req.WithContent))
	}
	return out, nil
}

func (h *MemoryHost) Save(_ context.Context, name, content string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.saves = append(h.saves, SaveCall{Name: name, Content: content})
	if err := h.saveErrs[name]; err != nil {
		return err
	}

	unit, ok := h.units[name]
	if !ok {
		unit = Unit{Name: name, Active: true}
	}
	unit.Content = content
	h.units[name] = unit
	return nil
}

// FailSaves makes every subsequent Save of name return err. A nil err
// clears the failure.
func (h *MemoryHost) FailSaves(name string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err == nil {
		delete(h.saveErrs, name)
		return
	}
	h.saveErrs[name] = err
}

// Content returns the current text of name.
func (h *MemoryHost) Content(name string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	unit, ok := h.units[name]
	return unit.Content, ok
}

// Saves returns a copy of every Save call received so far, in order.
func (h *MemoryHost) Saves() []SaveCall {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]SaveCall(nil), h.saves...)
}

// SavesFor returns the Save calls issued for name.
func (h *MemoryHost) SavesFor(name string) []SaveCall {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []SaveCall
	for _, call := range h.saves {
		if call.Name == name {
			out = append(out, call)
		}
	}
	return out
}

func project(unit Unit, withContent bool) Unit {
	if withContent {
		return unit
	}
	return Unit{Name: unit.Name, Active: unit.Active}
}
