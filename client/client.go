package client

import (
	"context"
	"net"
	"strconv"

	"go.uber.org/zap"

	"github.com/luma/palrcon/protocol"
)

// Client keeps one authenticated connection per server address and correlates
// command responses with their callbacks.
type Client struct {
	ctx    context.Context
	cancel context.CancelFunc

	opts     Options
	registry *Registry
	pending  *PendingTable

	log *zap.Logger
}

// New creates a Client. Connections opened by the client live until they are
// closed, the server drops them, or ctx is cancelled.
func New(ctx context.Context, options Options) *Client {
	opts := options.withDefaults()
	ctx, cancel := context.WithCancel(ctx)

	return &Client{
		ctx:      ctx,
		cancel:   cancel,
		opts:     opts,
		registry: NewRegistry(),
		pending:  opts.Pending,
		log:      opts.Log,
	}
}

// Address returns the canonical registry key for a server.
func Address(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Connect returns the connection for host:port, opening it and starting the
// auth handshake if none exists. It never opens a second transport for an
// address that already has a connection.
func (c *Client) Connect(host string, port int, password string) *Conn {
	addr := Address(host, port)

	conn, created := c.registry.GetOrCreate(addr, func() *Conn {
		return newConn(c.ctx, addr, password, c.opts, c.registry)
	})

	if created {
		c.log.Debug("Opening connection", zap.String("addr", addr))
		go conn.run()
	}

	return conn
}

// ExecuteCommand sends command to the server at host:port.
//
// When the server's connection is authenticated the command is written
// immediately and the returned Dispatch carries its id. Otherwise the
// connection is opened if needed and the command is parked until the server
// accepts the password. Parked commands are sent exactly once, in the order
// they were issued. The returned Dispatch is marked Deferred in that case.
//
// Protocol failures are never returned. A callback learns about them through
// its error argument, or is never called when none was supplied.
func (c *Client) ExecuteCommand(host string, port int, password, command string, cb ResponseFunc) Dispatch {
	conn, ok := c.registry.Get(Address(host, port))
	if !ok {
		conn = c.Connect(host, port, password)
	}

	if conn.park(command, cb) {
		return Dispatch{Deferred: true}
	}

	return conn.Send(protocol.TypeCommand, command, cb)
}

// Exec sends command and waits for its response.
func (c *Client) Exec(ctx context.Context, host string, port int, password, command string) (*protocol.Packet, error) {
	type result struct {
		resp *protocol.Packet
		err  error
	}

	resultChan := make(chan result, 1)

	c.ExecuteCommand(host, port, password, command, func(resp *protocol.Packet, err error) {
		resultChan <- result{resp: resp, err: err}
	})

	select {
	case r := <-resultChan:
		return r.resp, r.err

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Get returns the live connection for host:port, if any.
func (c *Client) Get(host string, port int) (*Conn, bool) {
	return c.registry.Get(Address(host, port))
}

// Connections returns every registered connection.
func (c *Client) Connections() []*Conn {
	return c.registry.All()
}

// Pending returns the table correlating request ids with callbacks.
func (c *Client) Pending() *PendingTable {
	return c.pending
}

// Close closes every connection. Callbacks still waiting for a response are
// called with ErrConnectionClosed.
func (c *Client) Close() error {
	c.cancel()
	return c.registry.CloseAll()
}
