package macromem

import "context"

// Scope is a Memory bound to one scope name. Local operations act on that
// scope; global operations are the same as on the parent Memory.
type Scope struct {
	mem  *Memory
	name string
}

// ForScope returns a handle on the named scope. An empty name selects the
// caller identity.
func (m *Memory) ForScope(name string) *Scope {
	if name == "" {
		name = m.identity
	}
	return &Scope{mem: m, name: name}
}

// Name returns the scope name.
func (s *Scope) Name() string {
	return s.name
}

func (s *Scope) Read(ctx context.Context, key string) (any, error) {
	return s.mem.readEntry(ctx, s.name, key)
}

func (s *Scope) Write(ctx context.Context, key string, value any) (any, error) {
	return s.mem.writeEntry(ctx, s.name, key, value)
}

func (s *Scope) Remove(ctx context.Context, key string) (string, error) {
	return s.mem.removeEntry(ctx, s.name, key)
}

func (s *Scope) Print(ctx context.Context) (Document, error) {
	return s.mem.printScope(ctx, s.name)
}

func (s *Scope) ReadGlobal(ctx context.Context, key string) (any, error) {
	return s.mem.ReadGlobal(ctx, key)
}

func (s *Scope) WriteGlobal(ctx context.Context, key string, value any) (any, error) {
	return s.mem.WriteGlobal(ctx, key, value)
}

func (s *Scope) RemoveGlobal(ctx context.Context, key string) (string, error) {
	return s.mem.RemoveGlobal(ctx, key)
}

func (s *Scope) PrintGlobal(ctx context.Context) (Document, error) {
	return s.mem.PrintGlobal(ctx)
}
