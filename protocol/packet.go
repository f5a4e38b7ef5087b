package protocol

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// PacketType is the type field of a packet header.
type PacketType int32

const (
	// TypeResponseValue carries the output of a command.
	TypeResponseValue PacketType = 0

	// TypeCommand carries a console command from the client. The server reuses
	// the same value for its reply to an auth packet, see TypeAuthResponse.
	TypeCommand PacketType = 2

	// TypeAuthResponse is the server's verdict on an auth packet. Its id echoes
	// the auth packet's id on success and is -1 on failure.
	TypeAuthResponse PacketType = 2

	// TypeAuth carries the admin password.
	TypeAuth PacketType = 3
)

func (t PacketType) String() string {
	switch t {
	case TypeResponseValue:
		return "RESPONSE_VALUE"
	case TypeCommand:
		return "COMMAND"
	case TypeAuth:
		return "AUTH"
	default:
		return fmt.Sprintf("PacketType(%d)", int32(t))
	}
}

const (
	// HeaderSize is the size of the size, id and type fields.
	HeaderSize = 12

	// TerminatorSize is the size of the two null bytes closing every frame.
	TerminatorSize = 2

	// MinFrameSize is the size of a frame with an empty body.
	MinFrameSize = HeaderSize + TerminatorSize

	// MaxFrameSize bounds the frames ReadPacket will accept.
	MaxFrameSize = 1 << 16
)

// Packet is a single decoded frame.
type Packet struct {
	// Size is the header's size field: the byte count following the field itself.
	Size int32
	ID   int32
	Type PacketType
	Body []byte
}

// ASCII returns the body as 7-bit ASCII, stripping the high bit of every byte.
func (p *Packet) ASCII() string {
	var b strings.Builder
	b.Grow(len(p.Body))

	for _, c := range p.Body {
		b.WriteByte(c & 0x7f)
	}

	return b.String()
}

// UTF8 returns the body decoded as UTF-8. Invalid sequences are replaced
// with U+FFFD.
func (p *Packet) UTF8() string {
	if utf8.Valid(p.Body) {
		return string(p.Body)
	}

	return strings.ToValidUTF8(string(p.Body), "�")
}

// FrameLength is the number of bytes the packet occupies on the wire.
func (p *Packet) FrameLength() int {
	return len(p.Body) + MinFrameSize
}
