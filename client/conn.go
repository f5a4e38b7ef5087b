package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/luma/palrcon/protocol"
)

var (
	ErrConnectionClosed = errors.New("rcon connection closed")
	ErrNotAuthenticated = errors.New("rcon connection is not authenticated")
	ErrWriteFailed      = errors.New("failed to write rcon packet")
)

type State int32

const (
	StateConnecting State = iota
	StateAwaitingAuth
	StateAuthenticated
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAwaitingAuth:
		return "awaiting_auth"
	case StateAuthenticated:
		return "authenticated"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Dispatch describes what happened to a command handed to the client.
type Dispatch struct {
	// ID is the request id assigned to the packet. It is only meaningful when
	// the command was not deferred.
	ID int32

	// Written reports whether the packet was written to the transport.
	Written bool

	// Deferred is set when the command was parked until the connection
	// authenticates. No id has been assigned yet.
	Deferred bool
}

// connSeq numbers connections so that each one owns its pending entries.
var connSeq uint64

// parkedCommand is a command waiting for the connection to authenticate.
type parkedCommand struct {
	command string
	cb      ResponseFunc
}

// Conn is the single connection the client keeps to one server address.
type Conn struct {
	ctx    context.Context
	cancel context.CancelFunc

	addr     string
	owner    string
	password string

	opts     Options
	pending  *PendingTable
	registry *Registry

	mu              sync.Mutex
	state           State
	conn            net.Conn
	authPacketID    int32
	authRequestTime time.Time
	authTimer       *time.Timer

	// parked holds commands issued before authentication, in call order.
	parked []parkedCommand

	writeMu sync.Mutex

	// ready is closed once the server accepts the password, done once the
	// connection is closed for any reason.
	ready     chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	log *zap.Logger
}

func newConn(parentCtx context.Context, addr, password string, opts Options, registry *Registry) *Conn {
	ctx, cancel := context.WithCancel(parentCtx)

	return &Conn{
		ctx:      ctx,
		cancel:   cancel,
		addr:     addr,
		owner:    fmt.Sprintf("%s/%d", addr, atomic.AddUint64(&connSeq, 1)),
		password: password,
		opts:     opts,
		pending:  opts.Pending,
		registry: registry,
		state:    StateConnecting,
		ready:    make(chan struct{}),
		done:     make(chan struct{}),
		log:      opts.Log.Named("conn").With(zap.String("addr", addr)),
	}
}

func (c *Conn) Addr() string {
	return c.addr
}

func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

func (c *Conn) Authenticated() bool {
	return c.State() == StateAuthenticated
}

// AuthPacketID returns the id of the auth packet sent on this connection and
// the time it was sent. Both are zero until the transport is established.
func (c *Conn) AuthPacketID() (int32, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.authPacketID, c.authRequestTime
}

// Ready is closed when the server accepts the password. It is closed at most
// once and never if authentication fails.
func (c *Conn) Ready() <-chan struct{} {
	return c.ready
}

// Done is closed when the connection has been closed.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Send writes a packet with a fresh request id. When cb is not nil it is
// registered against the id and called with the matching response, or with an
// error if the write fails or the connection closes first.
//
// Only auth packets may be sent before the connection is authenticated, any
// other packet is refused without touching the wire.
func (c *Conn) Send(t protocol.PacketType, body string, cb ResponseFunc) Dispatch {
	state := c.State()

	if t != protocol.TypeAuth && state != StateAuthenticated {
		c.log.Warn("Refusing to send before authentication",
			zap.Stringer("type", t),
			zap.Stringer("state", state))

		if cb != nil {
			cb(nil, ErrNotAuthenticated)
		}

		return Dispatch{}
	}

	return c.send(t, body, cb)
}

func (c *Conn) send(t protocol.PacketType, body string, cb ResponseFunc) Dispatch {
	id := c.pending.Register(c.owner, cb)

	if err := c.write(protocol.Encode(t, id, body)); err != nil {
		c.log.Warn("Failed to write packet",
			zap.Int32("id", id),
			zap.Stringer("type", t),
			zap.Error(err))

		c.pending.Fail(id, fmt.Errorf("%w: %v", ErrWriteFailed, err))

		return Dispatch{ID: id}
	}

	return Dispatch{ID: id, Written: true}
}

// Close closes the transport, removes the connection from the registry and
// fails every callback still waiting on a response from it.
func (c *Conn) Close() (err error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		prevState := c.state
		c.state = StateClosed
		conn := c.conn
		parked := c.parked
		c.parked = nil
		if c.authTimer != nil {
			c.authTimer.Stop()
		}
		c.mu.Unlock()

		c.cancel()

		if conn != nil {
			err = conn.Close()
		}

		failed := c.pending.FailOwner(c.owner, ErrConnectionClosed)
		for _, p := range parked {
			if p.cb != nil {
				p.cb(nil, ErrConnectionClosed)
			}
		}
		c.registry.Remove(c.addr, c)

		close(c.done)

		c.log.Info("Disconnected",
			zap.Stringer("prevState", prevState),
			zap.Int("failedRequests", failed),
			zap.Int("droppedCommands", len(parked)))
	})

	return err
}

// run dials the server, sends the auth packet and reads until the connection
// closes.
func (c *Conn) run() {
	conn, err := c.opts.Dialer.DialContext(c.ctx, "tcp", c.addr)
	if err != nil {
		c.log.Error("Failed to connect", zap.Error(err))
		c.Close()
		return
	}

	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		conn.Close()
		return
	}
	c.conn = conn
	c.mu.Unlock()

	c.log.Info("Connected")

	go func() {
		select {
		case <-c.ctx.Done():
			c.Close()
		case <-c.done:
		}
	}()

	if err := c.sendAuth(); err != nil {
		c.log.Error("Failed to send auth packet", zap.Error(err))
		c.Close()
		return
	}

	c.readLoop()
}

func (c *Conn) sendAuth() error {
	id := c.pending.Register(c.owner, nil)

	c.mu.Lock()
	c.state = StateAwaitingAuth
	c.authPacketID = id
	c.authRequestTime = time.Now()
	c.authTimer = time.AfterFunc(c.opts.AuthTimeout, c.checkAuthTimeout)
	c.mu.Unlock()

	return c.write(protocol.Encode(protocol.TypeAuth, id, c.password))
}

func (c *Conn) checkAuthTimeout() {
	c.mu.Lock()
	state := c.state
	sentAt := c.authRequestTime
	c.mu.Unlock()

	if state == StateAwaitingAuth {
		c.log.Error("Auth request timed out",
			zap.Duration("timeout", c.opts.AuthTimeout),
			zap.Time("sentAt", sentAt))
	}
}

func (c *Conn) readLoop() {
	log := c.log.Named("readLoop")

	for {
		pkt, err := protocol.ReadPacket(c.conn)
		if err != nil {
			switch {
			case c.State() == StateClosed:
				// Closed locally, the read error is expected.
			case errors.Is(err, io.EOF):
				log.Info("Server closed the connection")
			case errors.Is(err, protocol.ErrProtocol):
				log.Error("Received a malformed packet", zap.Error(err))
			default:
				log.Error("Transport error", zap.Error(err))
			}

			c.Close()
			return
		}

		log.Debug("Received packet",
			zap.Int32("size", pkt.Size),
			zap.Int32("id", pkt.ID),
			zap.Stringer("type", pkt.Type),
			zap.String("body", pkt.ASCII()),
			zap.String("utf8", pkt.UTF8()))

		c.handlePacket(pkt)
	}
}

func (c *Conn) handlePacket(pkt *protocol.Packet) {
	c.mu.Lock()

	if c.state != StateAuthenticated {
		if pkt.Type != protocol.TypeAuthResponse {
			c.mu.Unlock()
			c.log.Debug("Ignoring packet received before authentication", zap.Int32("id", pkt.ID))
			return
		}

		if pkt.ID != c.authPacketID {
			c.mu.Unlock()
			c.log.Warn("Password rejected by server, check the admin password",
				zap.Int32("id", pkt.ID))
			c.Close()
			return
		}

		c.authTimer.Stop()
		elapsed := time.Since(c.authRequestTime)
		c.mu.Unlock()

		c.log.Info("Authenticated", zap.Duration("elapsed", elapsed))
		c.replayParked()
		return
	}

	c.mu.Unlock()

	if pkt.Type != protocol.TypeResponseValue {
		c.log.Debug("Ignoring unexpected packet type", zap.Stringer("type", pkt.Type))
		return
	}

	if !c.pending.Resolve(c.owner, pkt.ID, pkt) {
		c.log.Debug("No pending request for response", zap.Int32("id", pkt.ID))
	}
}

// park queues command until the connection authenticates. It reports false
// when the connection is already authenticated and the command should be sent
// right away. Commands parked on a closed connection fail immediately.
func (c *Conn) park(command string, cb ResponseFunc) bool {
	c.mu.Lock()

	switch c.state {
	case StateAuthenticated:
		c.mu.Unlock()
		return false

	case StateClosed:
		c.mu.Unlock()
		if cb != nil {
			cb(nil, ErrConnectionClosed)
		}
		return true
	}

	c.parked = append(c.parked, parkedCommand{command: command, cb: cb})
	c.mu.Unlock()

	return true
}

// replayParked sends the parked commands in the order they were parked, then
// marks the connection authenticated. Commands parked while replaying are
// sent after the ones already queued.
func (c *Conn) replayParked() {
	for {
		c.mu.Lock()
		if c.state == StateClosed {
			c.mu.Unlock()
			return
		}

		parked := c.parked
		c.parked = nil

		if len(parked) == 0 {
			c.state = StateAuthenticated
			c.mu.Unlock()
			close(c.ready)
			return
		}
		c.mu.Unlock()

		c.log.Debug("Replaying deferred commands", zap.Int("commands", len(parked)))

		for _, p := range parked {
			c.send(protocol.TypeCommand, p.command, p.cb)
		}
	}
}

func (c *Conn) write(frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	conn := c.conn
	closed := c.state == StateClosed
	c.mu.Unlock()

	if closed || conn == nil {
		return ErrConnectionClosed
	}

	if c.opts.WriteTimeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout)); err != nil {
			return err
		}
	}

	_, err := conn.Write(frame)
	return err
}
