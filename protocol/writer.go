package protocol

import (
	"encoding/binary"
	"io"
)

// Encode builds the wire frame for a packet:
//
//	[size:4][id:4][type:4][body...][0x00 0x00]
//
// All integers are little-endian and size is len(body)+10. The codec does not
// limit the body length, callers must keep bodies within what the server accepts.
func Encode(t PacketType, id int32, body string) []byte {
	frameLen := len(body) + MinFrameSize
	buf := make([]byte, frameLen)

	binary.LittleEndian.PutUint32(buf[0:4], uint32(frameLen-4))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(id))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(t))
	copy(buf[HeaderSize:], body)

	// The trailing two bytes are already zero.
	return buf
}

// WritePacket encodes a packet and writes it to w in a single Write call.
func WritePacket(w io.Writer, t PacketType, id int32, body string) error {
	_, err := w.Write(Encode(t, id, body))
	return err
}
