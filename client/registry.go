package client

import (
	"sync"

	"go.uber.org/multierr"
)

// Registry maps canonical addresses to their single live connection.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Conn
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]*Conn),
	}
}

// GetOrCreate returns the connection for addr, calling create to make one
// when there is none. The second return value reports whether create ran.
func (r *Registry) GetOrCreate(addr string, create func() *Conn) (*Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conn, ok := r.conns[addr]; ok {
		return conn, false
	}

	conn := create()
	r.conns[addr] = conn

	return conn, true
}

func (r *Registry) Get(addr string) (*Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[addr]
	return conn, ok
}

// Remove deletes the entry for addr only if it still refers to conn, so a
// closing connection never evicts its replacement.
func (r *Registry) Remove(addr string, conn *Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.conns[addr]; ok && current == conn {
		delete(r.conns, addr)
		return true
	}

	return false
}

func (r *Registry) All() []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*Conn, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}

	return conns
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns)
}

// CloseAll closes every registered connection. Each connection removes itself
// from the registry as it closes.
func (r *Registry) CloseAll() (err error) {
	for _, conn := range r.All() {
		err = multierr.Append(err, conn.Close())
	}

	return err
}
