package client

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultAuthTimeout = 5 * time.Second
	DefaultDialTimeout = 10 * time.Second
	DefaultKeepAlive   = 30 * time.Second
)

// Dialer opens the transport for a connection. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

type Options struct {
	// AuthTimeout is how long after sending the auth packet a connection that
	// is still unauthenticated gets reported. The connection is left open.
	AuthTimeout time.Duration

	// DialTimeout and KeepAlive configure the default dialer. They are ignored
	// when Dialer is set.
	DialTimeout time.Duration
	KeepAlive   time.Duration

	// WriteTimeout bounds every packet write. Zero means no deadline.
	WriteTimeout time.Duration

	Dialer Dialer

	// Pending is the table correlating request ids with callbacks. A fresh
	// table is created when nil.
	Pending *PendingTable

	Log *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.AuthTimeout <= 0 {
		o.AuthTimeout = DefaultAuthTimeout
	}

	if o.DialTimeout <= 0 {
		o.DialTimeout = DefaultDialTimeout
	}

	if o.KeepAlive == 0 {
		o.KeepAlive = DefaultKeepAlive
	}

	if o.Dialer == nil {
		o.Dialer = &net.Dialer{
			Timeout:   o.DialTimeout,
			KeepAlive: o.KeepAlive,
		}
	}

	if o.Pending == nil {
		o.Pending = NewPendingTable()
	}

	if o.Log == nil {
		o.Log = zap.NewNop()
	}

	return o
}
