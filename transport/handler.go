package transport

import (
	"context"
	"strings"
	"sync"
)

// Handler executes a console command and returns its output.
type Handler interface {
	Exec(ctx context.Context, command string) (string, error)
}

type HandlerFunc func(ctx context.Context, command string) (string, error)

func (f HandlerFunc) Exec(ctx context.Context, command string) (string, error) {
	return f(ctx, command)
}

// Mux dispatches on the first word of a command, case-insensitively. Commands
// without a route go to the fallback handler.
type Mux struct {
	mu       sync.RWMutex
	routes   map[string]Handler
	fallback Handler
}

func NewMux(fallback Handler) *Mux {
	if fallback == nil {
		fallback = HandlerFunc(func(_ context.Context, command string) (string, error) {
			return "Unknown command: " + command, nil
		})
	}

	return &Mux{
		routes:   make(map[string]Handler),
		fallback: fallback,
	}
}

func (m *Mux) Handle(name string, h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.routes[strings.ToLower(name)] = h
}

func (m *Mux) HandleFunc(name string, f func(ctx context.Context, command string) (string, error)) {
	m.Handle(name, HandlerFunc(f))
}

func (m *Mux) Exec(ctx context.Context, command string) (string, error) {
	name := command
	if i := strings.IndexByte(command, ' '); i >= 0 {
		name = command[:i]
	}

	m.mu.RLock()
	h, ok := m.routes[strings.ToLower(name)]
	m.mu.RUnlock()

	if !ok {
		h = m.fallback
	}

	return h.Exec(ctx, command)
}

// Echo answers every command with the command itself.
var Echo = HandlerFunc(func(_ context.Context, command string) (string, error) {
	return command, nil
})

var _ Handler = (*Mux)(nil)
