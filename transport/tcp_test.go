package transport_test

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/luma/palrcon/protocol"
	"github.com/luma/palrcon/transport"
)

var _ = Describe("transport", func() {
	Describe("TCP", func() {
		var (
			tcp  *transport.TCP
			conn net.Conn
		)

		BeforeEach(func() {
			mux := transport.NewMux(nil)
			mux.HandleFunc("Info", func(context.Context, string) (string, error) {
				return "Welcome to Pal Server[v0.1.5.0] test", nil
			})
			mux.HandleFunc("Fail", func(context.Context, string) (string, error) {
				return "", errors.New("boom")
			})

			tcp = makeTCPServer(mux)

			var err error
			conn, err = net.Dial("tcp", tcp.Addr().String())
			Expect(err).To(Succeed())
		})

		AfterEach(func() {
			conn.Close()
			Expect(tcp.Close()).To(Succeed())
		})

		It("accepts the right password with an empty response value then the auth response", func() {
			Expect(protocol.WritePacket(conn, protocol.TypeAuth, 42, "secret")).To(Succeed())

			first := readPacket(conn)
			Expect(first.Type).To(Equal(protocol.TypeResponseValue))
			Expect(first.ID).To(Equal(int32(42)))

			second := readPacket(conn)
			Expect(second.Type).To(Equal(protocol.TypeAuthResponse))
			Expect(second.ID).To(Equal(int32(42)))
		})

		It("rejects a wrong password with id -1", func() {
			Expect(protocol.WritePacket(conn, protocol.TypeAuth, 42, "nope")).To(Succeed())

			verdict := readPacket(conn)
			Expect(verdict.Type).To(Equal(protocol.TypeAuthResponse))
			Expect(verdict.ID).To(Equal(int32(-1)))
		})

		It("ignores commands before authentication", func() {
			Expect(protocol.WritePacket(conn, protocol.TypeCommand, 7, "Info")).To(Succeed())

			Expect(conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))).To(Succeed())
			_, err := protocol.ReadPacket(conn)

			var netErr net.Error
			Expect(errors.As(err, &netErr)).To(BeTrue())
			Expect(netErr.Timeout()).To(BeTrue())
		})

		Describe("commands", func() {
			BeforeEach(func() {
				Expect(protocol.WritePacket(conn, protocol.TypeAuth, 1, "secret")).To(Succeed())
				readPacket(conn)
				readPacket(conn)
			})

			It("routes commands case-insensitively and echoes the request id", func() {
				Expect(protocol.WritePacket(conn, protocol.TypeCommand, 7, "info")).To(Succeed())

				resp := readPacket(conn)
				Expect(resp.Type).To(Equal(protocol.TypeResponseValue))
				Expect(resp.ID).To(Equal(int32(7)))
				Expect(resp.UTF8()).To(HavePrefix("Welcome to Pal Server"))
			})

			It("answers unknown commands through the fallback", func() {
				Expect(protocol.WritePacket(conn, protocol.TypeCommand, 8, "Teleport me")).To(Succeed())
				Expect(readPacket(conn).UTF8()).To(Equal("Unknown command: Teleport me"))
			})

			It("reports handler errors in the response body", func() {
				Expect(protocol.WritePacket(conn, protocol.TypeCommand, 9, "Fail")).To(Succeed())
				Expect(readPacket(conn).UTF8()).To(Equal("Error: boom"))
			})

			It("answers pipelined commands in order", func() {
				for id := int32(10); id < 15; id++ {
					Expect(protocol.WritePacket(conn, protocol.TypeCommand, id, "Info")).To(Succeed())
				}

				for id := int32(10); id < 15; id++ {
					Expect(readPacket(conn).ID).To(Equal(id))
				}
			})
		})

		It("drops client connections when closed", func() {
			Eventually(tcp.ConnCount).Should(Equal(1))
			Expect(tcp.Close()).To(Succeed())

			Expect(conn.SetReadDeadline(time.Now().Add(time.Second))).To(Succeed())
			_, err := protocol.ReadPacket(conn)
			Expect(err).To(HaveOccurred())
			Expect(strings.Contains(err.Error(), "timeout")).To(BeFalse())
		})
	})

	Describe("Mux", func() {
		It("passes the full command line to the handler", func() {
			mux := transport.NewMux(transport.Echo)
			mux.HandleFunc("Broadcast", func(_ context.Context, command string) (string, error) {
				return strings.TrimPrefix(command, "Broadcast "), nil
			})

			out, err := mux.Exec(context.Background(), "Broadcast hello_world")
			Expect(err).To(Succeed())
			Expect(out).To(Equal("hello_world"))

			out, err = mux.Exec(context.Background(), "Save")
			Expect(err).To(Succeed())
			Expect(out).To(Equal("Save"))
		})
	})
})

func readPacket(conn net.Conn) *protocol.Packet {
	ExpectWithOffset(1, conn.SetReadDeadline(time.Now().Add(5*time.Second))).To(Succeed())

	pkt, err := protocol.ReadPacket(conn)
	ExpectWithOffset(1, err).To(Succeed())

	return pkt
}

func makeTCPServer(handler transport.Handler) *transport.TCP {
	log := zap.New(zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(GinkgoWriter),
		zap.DebugLevel,
	))

	tcp := transport.NewTCP(transport.Options{
		Host:      "127.0.0.1",
		Port:      0,
		Password:  "secret",
		Reuseport: true,
		Trace:     true,
		Handler:   handler,
		Log:       log,
	})

	Expect(tcp.Start(context.Background())).To(Succeed())

	return tcp
}
