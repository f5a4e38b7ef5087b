package cmd

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/luma/palrcon/client"
	"github.com/luma/palrcon/report"
	"github.com/luma/palrcon/storage"
	"github.com/luma/palrcon/transport"
	"github.com/luma/palrcon/webhook"
)

var _ = Describe("cmd / palworldHandler", func() {
	players := []report.Player{{Name: "Alice", PlayerUID: "111", SteamID: "765"}}

	It("lists players in the ShowPlayers format", func() {
		out, err := palworldHandler(players, zap.NewNop()).Exec(context.Background(), "ShowPlayers")
		Expect(err).To(Succeed())
		Expect(out).To(Equal("name,playeruid,steamid\nAlice,111,765\n"))
		Expect(report.ParsePlayers(out)).To(Equal(players))
	})

	It("broadcasts messages", func() {
		out, err := palworldHandler(nil, zap.NewNop()).Exec(context.Background(), "broadcast hello_world")
		Expect(err).To(Succeed())
		Expect(out).To(Equal("Broadcasted: hello_world"))

		_, err = palworldHandler(nil, zap.NewNop()).Exec(context.Background(), "Broadcast")
		Expect(err).To(MatchError("missing broadcast message"))
	})

	It("echoes anything else", func() {
		out, err := palworldHandler(nil, zap.NewNop()).Exec(context.Background(), "Save")
		Expect(err).To(Succeed())
		Expect(out).To(Equal("Save"))
	})
})

var _ = Describe("cmd / showPlayers", func() {
	It("summarises the players of a live server", func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		tcp := transport.NewTCP(transport.Options{
			Host:     "127.0.0.1",
			Password: "secret",
			Handler: palworldHandler([]report.Player{
				{Name: "Alice", PlayerUID: "111", SteamID: "765"},
				{Name: "Bob", PlayerUID: "222", SteamID: "766"},
			}, zap.NewNop()),
		})
		Expect(tcp.Start(ctx)).To(Succeed())
		defer tcp.Close()

		rcon := client.New(ctx, client.Options{})
		defer rcon.Close()

		server := &storage.Server{
			Host:          "127.0.0.1",
			Alias:         "local",
			RCON:          true,
			RCONPort:      tcp.Addr().(*net.TCPAddr).Port,
			AdminPassword: "secret",
		}

		summary, n, err := showPlayers(ctx, rcon, server)
		Expect(err).To(Succeed())
		Expect(n).To(Equal(2))
		Expect(summary).To(HavePrefix("server local (127.0.0.1)\nplayers online: 2"))
		Expect(summary).To(ContainSubstring("Bob:\n UID: 222"))
	})
})

var _ = Describe("cmd / reportMessages", func() {
	It("logs enabled reports from known servers", func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		core, logs := observer.New(zapcore.DebugLevel)

		store := storage.NewInmemoryStore()
		defer store.Close()
		Expect(storage.PutServer(ctx, store, storage.Server{Host: "10.0.0.1", Alias: "main"})).To(Succeed())

		messages := make(chan *webhook.Message, 3)
		messages <- &webhook.Message{Server: "10.0.0.9", Title: report.TitleServerStarted}
		messages <- &webhook.Message{Server: "10.0.0.1", Title: report.TitlePlayerJoined, Content: "Alice加入了游戏"}
		messages <- &webhook.Message{Server: "10.0.0.1", Title: report.TitleServerStarted}

		go reportMessages(ctx, store, messages, report.Filter{report.KindServerStarting: true}, zap.New(core))

		Eventually(func() int {
			return logs.FilterMessage("main (10.0.0.1): server started").Len()
		}, time.Second).Should(Equal(1))

		Expect(logs.FilterMessage("Ignoring message from unknown server").Len()).To(Equal(1))
		Expect(logs.FilterMessage("Report disabled").Len()).To(Equal(1))
	})
})

var _ = Describe("cmd / gen man", func() {
	It("is reachable from the root command", func() {
		c, _, err := RootCmd.Find([]string{"gen", "man"})
		Expect(err).To(Succeed())
		Expect(c.CommandPath()).To(Equal("palrcon gen man"))
	})

	It("writes a man page per command", func() {
		dir, err := os.MkdirTemp("", "palrcon-man")
		Expect(err).To(Succeed())
		defer os.RemoveAll(dir)

		RootCmd.SetArgs([]string{"gen", "man", "--dir", dir})
		defer RootCmd.SetArgs(nil)

		Expect(RootCmd.Execute()).To(Succeed())

		for _, page := range []string{"palrcon.1", "palrcon-exec.1", "palrcon-gen-man.1"} {
			Expect(filepath.Join(dir, page)).To(BeAnExistingFile())
		}
	})
})
