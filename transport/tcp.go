package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	reuseport "github.com/kavu/go_reuseport"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/luma/palrcon/protocol"
)

const (
	WriteQueueSize = 127
	CommandTimeout = 3 * time.Second
)

var ErrConnClosed = errors.New("connection is closed")

// TCP is an RCON server. It authenticates clients against a single password
// and answers their commands through a Handler.
type TCP struct {
	cancel     context.CancelFunc
	stopWaiter sync.WaitGroup

	addr     string
	listener net.Listener

	options Options

	mu          sync.Mutex
	activeConns map[*TCPConn]struct{}

	log *zap.Logger
}

func NewTCP(options Options) *TCP {
	if options.Log == nil {
		options.Log = zap.NewNop()
	}

	if options.Handler == nil {
		options.Handler = Echo
	}

	return &TCP{
		addr:        net.JoinHostPort(options.Host, strconv.Itoa(options.Port)),
		options:     options,
		activeConns: make(map[*TCPConn]struct{}),
		log:         options.Log,
	}
}

// Start binds the listener and starts accepting connections. The server is
// listening when Start returns.
func (t *TCP) Start(parentCtx context.Context) (err error) {
	ctx, cancel := context.WithCancel(parentCtx)
	t.cancel = cancel

	if t.options.Reuseport {
		t.listener, err = reuseport.Listen("tcp", t.addr)
	} else {
		t.listener, err = net.Listen("tcp", t.addr)
	}

	if err != nil {
		cancel()
		return fmt.Errorf("Failed to listen on %s: %w", t.addr, err)
	}

	t.log.Info("Listening for rcon clients", zap.Stringer("addr", t.listener.Addr()))

	t.stopWaiter.Add(1)
	go func() {
		defer t.stopWaiter.Done()

		if err := t.acceptLoop(ctx); err != nil {
			t.log.Error("Stopped accepting connections", zap.Error(err))
		}
	}()

	return nil
}

// Addr returns the address the server is listening on.
func (t *TCP) Addr() net.Addr {
	return t.listener.Addr()
}

// Close immediately closes the listener and every client connection.
func (t *TCP) Close() (err error) {
	t.log.Info("Stopping rcon server")

	if t.cancel != nil {
		t.cancel()
	}

	if t.listener != nil {
		err = multierr.Append(err, ignoreClosed(t.listener.Close()))
	}

	t.mu.Lock()
	conns := make([]*TCPConn, 0, len(t.activeConns))
	for conn := range t.activeConns {
		conns = append(conns, conn)
	}
	t.mu.Unlock()

	for _, conn := range conns {
		err = multierr.Append(err, conn.Close())
	}

	t.stopWaiter.Wait()
	t.log.Info("Rcon server stopped")

	return err
}

// ConnCount returns the number of connected clients.
func (t *TCP) ConnCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.activeConns)
}

func (t *TCP) acceptLoop(ctx context.Context) error {
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				// The listener was closed while we were waiting for new connections
				return nil
			default:
			}

			if errors.Is(err, net.ErrClosed) {
				return nil
			}

			return err
		}

		tcpConn := NewTCPConn(ctx, conn, t.options, t.log.Named("conn").With(
			zap.Stringer("remote", conn.RemoteAddr())))

		t.addConn(tcpConn)

		t.stopWaiter.Add(1)
		go func() {
			defer t.stopWaiter.Done()
			defer t.removeConn(tcpConn)

			tcpConn.Start()
		}()
	}
}

func (t *TCP) addConn(conn *TCPConn) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.activeConns[conn] = struct{}{}
}

func (t *TCP) removeConn(conn *TCPConn) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.activeConns, conn)
}

// TCPConn is one client connection to the server.
type TCPConn struct {
	ctx        context.Context
	cancel     context.CancelFunc
	loopWaiter sync.WaitGroup
	closeOnce  sync.Once

	conn    net.Conn
	options Options

	// authenticated is only touched by the read loop
	authenticated bool

	writeQueue chan []byte

	log *zap.Logger
}

func NewTCPConn(parentCtx context.Context, conn net.Conn, options Options, log *zap.Logger) *TCPConn {
	ctx, cancel := context.WithCancel(parentCtx)

	return &TCPConn{
		ctx:        ctx,
		cancel:     cancel,
		conn:       conn,
		options:    options,
		writeQueue: make(chan []byte, WriteQueueSize),
		log:        log,
	}
}

func (t *TCPConn) Close() (err error) {
	t.closeOnce.Do(func() {
		t.cancel()
		err = ignoreClosed(t.conn.Close())
	})

	return err
}

// Start runs the read and write loops and returns once both have exited.
func (t *TCPConn) Start() {
	t.loopWaiter.Add(2)

	go func() {
		defer t.loopWaiter.Done()
		defer t.Close()
		t.ReadLoop()
	}()

	go func() {
		defer t.loopWaiter.Done()
		t.WriteLoop()
	}()

	t.loopWaiter.Wait()
}

func (t *TCPConn) ReadLoop() {
	log := t.log.Named("readLoop")

	for {
		pkt, err := protocol.ReadPacket(t.conn)
		if err != nil {
			if t.isRunning() && !errors.Is(err, io.EOF) {
				log.Warn("Failed to read client packet", zap.Error(err))
			}
			return
		}

		if t.options.Trace {
			log.Debug("Packet",
				zap.Int32("id", pkt.ID),
				zap.Stringer("type", pkt.Type),
				zap.String("body", pkt.UTF8()))
		}

		if t.options.Observe != nil {
			t.options.Observe(t.conn.RemoteAddr().String(), pkt)
		}

		switch {
		case pkt.Type == protocol.TypeAuth:
			t.authenticate(pkt)

		case !t.authenticated:
			log.Warn("Ignoring packet from unauthenticated client",
				zap.Int32("id", pkt.ID),
				zap.Stringer("type", pkt.Type))

		case pkt.Type == protocol.TypeCommand:
			t.execute(pkt)

		default:
			log.Debug("Ignoring packet", zap.Stringer("type", pkt.Type))
		}
	}
}

func (t *TCPConn) WriteLoop() {
	log := t.log.Named("writeLoop")

	for {
		select {
		case <-t.ctx.Done():
			return

		case data := <-t.writeQueue:
			if _, err := t.conn.Write(data); err != nil {
				log.Warn("Failed to write from write queue", zap.Error(err))
				t.Close()
				return
			}
		}
	}
}

// Write queues data for the write loop.
func (t *TCPConn) Write(data []byte) (int, error) {
	select {
	case t.writeQueue <- data:
		return len(data), nil

	case <-t.ctx.Done():
		return 0, ErrConnClosed
	}
}

func (t *TCPConn) authenticate(pkt *protocol.Packet) {
	if pkt.UTF8() != t.options.Password {
		t.log.Warn("Client sent a wrong password")

		if err := protocol.WritePacket(t, protocol.TypeAuthResponse, -1, ""); err != nil {
			t.log.Warn("Failed to reject auth", zap.Error(err))
		}
		return
	}

	t.authenticated = true
	t.log.Info("Client authenticated")

	// Source servers send an empty response value ahead of the verdict
	if err := protocol.WritePacket(t, protocol.TypeResponseValue, pkt.ID, ""); err != nil {
		t.log.Warn("Failed to acknowledge auth", zap.Error(err))
		return
	}

	if err := protocol.WritePacket(t, protocol.TypeAuthResponse, pkt.ID, ""); err != nil {
		t.log.Warn("Failed to accept auth", zap.Error(err))
	}
}

func (t *TCPConn) execute(pkt *protocol.Packet) {
	ctx, cancel := context.WithTimeout(t.ctx, CommandTimeout)
	defer cancel()

	command := pkt.UTF8()

	output, err := t.options.Handler.Exec(ctx, command)
	if err != nil {
		t.log.Warn("Command failed", zap.String("command", command), zap.Error(err))
		output = "Error: " + err.Error()
	}

	if err := protocol.WritePacket(t, protocol.TypeResponseValue, pkt.ID, output); err != nil {
		t.log.Warn("Failed to reply to command",
			zap.Int32("id", pkt.ID),
			zap.String("command", command),
			zap.Error(err))
	}
}

// isRunning returns true if Close has not been called
func (t *TCPConn) isRunning() bool {
	select {
	case <-t.ctx.Done():
		return false

	default:
		return true
	}
}

func ignoreClosed(err error) error {
	if errors.Is(err, net.ErrClosed) {
		return nil
	}

	return err
}
