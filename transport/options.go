package transport

import (
	"go.uber.org/zap"

	"github.com/luma/palrcon/protocol"
)

type Options struct {
	// Host to listen on
	Host string

	// Port to listen on. Zero picks a free port, see TCP.Addr.
	Port int

	// Password clients must send in their auth packet
	Password string

	// Reuseport controls setting SO_REUSEPORT
	Reuseport bool

	// Trace logs every packet at debug level. This is only useful in local debugging
	Trace bool

	// Handler executes authenticated commands
	Handler Handler

	// Observe, when set, is called with every packet read from a client. Tests
	// use it to inspect what went over the wire.
	Observe func(remote string, pkt *protocol.Packet)

	Log *zap.Logger
}
