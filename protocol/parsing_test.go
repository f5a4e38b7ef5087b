package protocol_test

import (
	"bytes"
	"errors"
	"io"
	"strings"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/palrcon/protocol"
)

var _ = Describe("Parsing", func() {
	Describe("Decode()", func() {
		It("reproduces the fields of an encoded auth packet", func() {
			pkt, err := protocol.Decode(protocol.Encode(protocol.TypeAuth, 42, "secret"))
			Expect(err).To(Succeed())

			Expect(pkt.Size).To(Equal(int32(16)))
			Expect(pkt.ID).To(Equal(int32(42)))
			Expect(pkt.Type).To(Equal(protocol.TypeAuth))
			Expect(pkt.ASCII()).To(Equal("secret"))
			Expect(pkt.UTF8()).To(Equal("secret"))
		})

		It("round trips bodies of every length up to 4096", func() {
			for _, n := range []int{0, 1, 2, 100, 1000, 4095, 4096} {
				body := strings.Repeat("x", n)

				pkt, err := protocol.Decode(protocol.Encode(protocol.TypeCommand, int32(n*3), body))
				Expect(err).To(Succeed())
				Expect(pkt.Type).To(Equal(protocol.TypeCommand))
				Expect(pkt.ID).To(Equal(int32(n * 3)))
				Expect(pkt.ASCII()).To(Equal(body))
				Expect(pkt.FrameLength()).To(Equal(n + 14))
			}
		})

		It("exposes multibyte bodies through the UTF-8 view", func() {
			pkt, err := protocol.Decode(protocol.Encode(protocol.TypeResponseValue, 5, "帕鲁,123,456"))
			Expect(err).To(Succeed())

			Expect(pkt.UTF8()).To(Equal("帕鲁,123,456"))
			Expect(pkt.ASCII()).NotTo(Equal(pkt.UTF8()))
			Expect(pkt.ASCII()).To(HaveSuffix(",123,456"))
		})

		It("returns a protocol error for buffers shorter than a frame", func() {
			for _, n := range []int{0, 4, 12, 13} {
				_, err := protocol.Decode(make([]byte, n))
				Expect(errors.Is(err, protocol.ErrPacketTooShort)).To(BeTrue())
				Expect(errors.Is(err, protocol.ErrProtocol)).To(BeTrue())
			}
		})

		It("returns a protocol error when the size field disagrees with the buffer", func() {
			frame := protocol.Encode(protocol.TypeCommand, 1, "status")
			_, err := protocol.Decode(frame[:len(frame)-1])
			Expect(errors.Is(err, protocol.ErrPacketSizeMismatch)).To(BeTrue())
		})
	})

	Describe("ReadPacket()", func() {
		It("reads consecutive frames from one stream", func() {
			stream := bytes.NewBuffer(nil)
			stream.Write(protocol.Encode(protocol.TypeResponseValue, 1, "first"))
			stream.Write(protocol.Encode(protocol.TypeAuthResponse, 2, ""))

			first, err := protocol.ReadPacket(stream)
			Expect(err).To(Succeed())
			Expect(first.ID).To(Equal(int32(1)))
			Expect(first.ASCII()).To(Equal("first"))

			second, err := protocol.ReadPacket(stream)
			Expect(err).To(Succeed())
			Expect(second.ID).To(Equal(int32(2)))
			Expect(second.Body).To(BeEmpty())

			_, err = protocol.ReadPacket(stream)
			Expect(err).To(MatchError(io.EOF))
		})

		It("reports a frame cut short as an unexpected EOF", func() {
			frame := protocol.Encode(protocol.TypeResponseValue, 1, "truncated")
			_, err := protocol.ReadPacket(bytes.NewReader(frame[:len(frame)-3]))
			Expect(errors.Is(err, io.ErrUnexpectedEOF)).To(BeTrue())
		})

		It("rejects size fields below the minimum", func() {
			frame := protocol.Encode(protocol.TypeResponseValue, 1, "")
			frame[0] = 9
			_, err := protocol.ReadPacket(bytes.NewReader(frame))
			Expect(errors.Is(err, protocol.ErrPacketTooShort)).To(BeTrue())
		})

		It("rejects size fields above the maximum", func() {
			frame := []byte{0xff, 0xff, 0xff, 0x00}
			_, err := protocol.ReadPacket(bytes.NewReader(frame))
			Expect(errors.Is(err, protocol.ErrPacketTooLarge)).To(BeTrue())
		})
	})
})
