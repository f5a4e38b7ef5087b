package client

import (
	"math/rand"
	"sync"
	"time"

	"github.com/luma/palrcon/protocol"
)

// ResponseFunc receives either the response to a command or the reason no
// response will ever arrive. It is called at most once, from the goroutine
// reading the connection, so it must not block.
type ResponseFunc func(resp *protocol.Packet, err error)

type pendingEntry struct {
	owner string
	cb    ResponseFunc
}

// PendingTable correlates request ids with one-shot callbacks. A single table
// is shared by every connection of a Client, and may be shared by several
// clients. Entries remember the owner they were registered by, a token unique
// to one connection, and only that owner can resolve or fail them in bulk.
type PendingTable struct {
	mu      sync.Mutex
	entries map[int32]pendingEntry
	rnd     *rand.Rand
}

func NewPendingTable() *PendingTable {
	return &PendingTable{
		entries: make(map[int32]pendingEntry),
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Register draws a request id uniformly from [0, 2^31) and, when cb is not
// nil, stores cb against it. Ids that are currently pending are never handed
// out twice.
func (p *PendingTable) Register(owner string, cb ResponseFunc) int32 {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.rnd.Int31()
	for {
		if _, taken := p.entries[id]; !taken {
			break
		}
		id = p.rnd.Int31()
	}

	if cb != nil {
		p.entries[id] = pendingEntry{owner: owner, cb: cb}
	}

	return id
}

// Resolve delivers resp to the callback owner registered for its id and
// removes the entry. It reports whether a callback was invoked.
func (p *PendingTable) Resolve(owner string, id int32, resp *protocol.Packet) bool {
	p.mu.Lock()
	entry, ok := p.entries[id]
	if ok && entry.owner == owner {
		delete(p.entries, id)
	} else {
		ok = false
	}
	p.mu.Unlock()

	if !ok {
		return false
	}

	entry.cb(resp, nil)
	return true
}

// Fail removes a single entry and hands err to its callback.
func (p *PendingTable) Fail(id int32, err error) bool {
	p.mu.Lock()
	entry, ok := p.entries[id]
	delete(p.entries, id)
	p.mu.Unlock()

	if !ok {
		return false
	}

	entry.cb(nil, err)
	return true
}

// FailOwner fails every entry registered by owner and returns how many
// callbacks were invoked.
func (p *PendingTable) FailOwner(owner string, err error) int {
	p.mu.Lock()
	var failed []ResponseFunc
	for id, entry := range p.entries {
		if entry.owner == owner {
			failed = append(failed, entry.cb)
			delete(p.entries, id)
		}
	}
	p.mu.Unlock()

	for _, cb := range failed {
		cb(nil, err)
	}

	return len(failed)
}

// Drain fails every entry in the table.
func (p *PendingTable) Drain(err error) int {
	p.mu.Lock()
	entries := p.entries
	p.entries = make(map[int32]pendingEntry)
	p.mu.Unlock()

	for _, entry := range entries {
		entry.cb(nil, err)
	}

	return len(entries)
}

func (p *PendingTable) Has(id int32) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, ok := p.entries[id]
	return ok
}

func (p *PendingTable) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.entries)
}
