package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrProtocol is wrapped by every error returned for a malformed frame.
	ErrProtocol = errors.New("rcon protocol error")

	ErrPacketTooShort     = fmt.Errorf("%w: packet is shorter than the minimum frame size", ErrProtocol)
	ErrPacketSizeMismatch = fmt.Errorf("%w: size field does not match the frame length", ErrProtocol)
	ErrPacketTooLarge     = fmt.Errorf("%w: packet exceeds the maximum frame size", ErrProtocol)
)

// Decode parses exactly one complete frame.
//
// The buffer is validated before any header field is read: it must hold at
// least MinFrameSize bytes and its size field must equal len(buf)-4. The body
// is the byte range [12, len(buf)-2).
func Decode(buf []byte) (*Packet, error) {
	if len(buf) < MinFrameSize {
		return nil, fmt.Errorf("decoding %d bytes: %w", len(buf), ErrPacketTooShort)
	}

	size := int32(binary.LittleEndian.Uint32(buf[0:4]))
	if int(size) != len(buf)-4 {
		return nil, fmt.Errorf("size field %d, frame of %d bytes: %w", size, len(buf), ErrPacketSizeMismatch)
	}

	body := make([]byte, len(buf)-MinFrameSize)
	copy(body, buf[HeaderSize:len(buf)-TerminatorSize])

	return &Packet{
		Size: size,
		ID:   int32(binary.LittleEndian.Uint32(buf[4:8])),
		Type: PacketType(int32(binary.LittleEndian.Uint32(buf[8:12]))),
		Body: body,
	}, nil
}

// ReadPacket reads one frame from a stream. It reads the size field first and
// then exactly that many bytes, so frames that arrive split across several
// reads, or several frames in one read, are handled.
func ReadPacket(r io.Reader) (*Packet, error) {
	var sizeBuf [4]byte
	if _, err := io.ReadFull(r, sizeBuf[:]); err != nil {
		return nil, err
	}

	size := int32(binary.LittleEndian.Uint32(sizeBuf[:]))

	switch {
	case size < MinFrameSize-4:
		return nil, fmt.Errorf("size field %d: %w", size, ErrPacketTooShort)
	case size > MaxFrameSize-4:
		return nil, fmt.Errorf("size field %d: %w", size, ErrPacketTooLarge)
	}

	frame := make([]byte, 4+int(size))
	copy(frame, sizeBuf[:])

	if _, err := io.ReadFull(r, frame[4:]); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}

		return nil, fmt.Errorf("reading %d byte packet: %w", size, err)
	}

	return Decode(frame)
}
