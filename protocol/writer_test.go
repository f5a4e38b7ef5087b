package protocol_test

import (
	"bytes"
	"encoding/binary"
	"strings"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/palrcon/protocol"
)

var _ = Describe("Writer", func() {
	Describe("Encode()", func() {
		It("lays out an auth packet as size, id, type, body and terminator", func() {
			frame := protocol.Encode(protocol.TypeAuth, 42, "secret")

			Expect(frame).To(HaveLen(20))
			Expect(int32(binary.LittleEndian.Uint32(frame[0:4]))).To(Equal(int32(16)))
			Expect(int32(binary.LittleEndian.Uint32(frame[4:8]))).To(Equal(int32(42)))
			Expect(int32(binary.LittleEndian.Uint32(frame[8:12]))).To(Equal(int32(3)))
			Expect(string(frame[12:18])).To(Equal("secret"))
			Expect(frame[18:]).To(Equal([]byte{0x00, 0x00}))
		})

		It("encodes an empty body as a 14 byte frame", func() {
			frame := protocol.Encode(protocol.TypeResponseValue, 1, "")

			Expect(frame).To(HaveLen(protocol.MinFrameSize))
			Expect(binary.LittleEndian.Uint32(frame[0:4])).To(Equal(uint32(10)))
		})

		It("writes negative ids in two's complement", func() {
			frame := protocol.Encode(protocol.TypeAuthResponse, -1, "")
			Expect(frame[4:8]).To(Equal([]byte{0xff, 0xff, 0xff, 0xff}))
		})

		It("always writes a size field equal to the frame length minus four", func() {
			for _, n := range []int{0, 1, 13, 255, 4096} {
				body := strings.Repeat("a", n)
				frame := protocol.Encode(protocol.TypeCommand, int32(n), body)

				Expect(frame).To(HaveLen(n + 14))
				Expect(int(binary.LittleEndian.Uint32(frame[0:4]))).To(Equal(len(frame) - 4))
				Expect(int(binary.LittleEndian.Uint32(frame[0:4]))).To(Equal(n + 10))
			}
		})

		It("matches a known Source RCON capture", func() {
			frame := protocol.Encode(protocol.TypeCommand, 42, "info")
			Expect(frame).To(Equal([]byte{
				0x0e, 0x00, 0x00, 0x00,
				0x2a, 0x00, 0x00, 0x00,
				0x02, 0x00, 0x00, 0x00,
				'i', 'n', 'f', 'o',
				0x00, 0x00,
			}))
		})
	})

	Describe("WritePacket()", func() {
		It("writes the encoded frame", func() {
			w := bytes.NewBuffer([]byte{})

			Expect(protocol.WritePacket(w, protocol.TypeCommand, 7, "ShowPlayers")).To(Succeed())
			Expect(w.Bytes()).To(Equal(protocol.Encode(protocol.TypeCommand, 7, "ShowPlayers")))
		})
	})
})
