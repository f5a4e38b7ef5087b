package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luma/palrcon/internal/meta"
	"github.com/luma/palrcon/report"
	"github.com/luma/palrcon/transport"
)

var (
	serveHost      string
	servePort      int
	servePassword  string
	servePlayers   []string
	serveReuseport bool
	serveTrace     bool
)

func init() {
	flags := ServeCmd.Flags()

	flags.StringVarP(&serveHost, "host", "a", "127.0.0.1", "The host to listen on")
	flags.IntVarP(&servePort, "port", "p", 25575, "The port to listen for RCON clients on")
	flags.StringVar(&servePassword, "password", "", "The admin password clients must send")
	flags.StringArrayVar(&servePlayers, "player", nil, "A player reported by ShowPlayers, as name,playeruid,steamid")
	flags.BoolVar(&serveReuseport, "reuseport", false, "Set SO_REUSEPORT on the listener")
	flags.BoolVar(&serveTrace, "trace", false, "Log every packet")
}

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a local RCON server",
	Long: `Run a local RCON server that stands in for a Palworld server

It answers Info, ShowPlayers and Broadcast and echoes every other command.

Usage
	palrcon serve --password secret --player Alice,111,76561190000000001

`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if servePassword == "" {
			return errors.New("--password is required")
		}

		ctx, signalStop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer signalStop()

		_, log, err := loadEnv(ctx)
		if err != nil {
			return err
		}
		defer log.Sync() // nolint:errcheck

		players := report.ParsePlayers("name,playeruid,steamid\n" + strings.Join(servePlayers, "\n"))

		tcp := transport.NewTCP(transport.Options{
			Host:      serveHost,
			Port:      servePort,
			Password:  servePassword,
			Reuseport: serveReuseport,
			Trace:     serveTrace,
			Handler:   palworldHandler(players, log),
			Log:       log.Named("transport"),
		})

		if err := tcp.Start(ctx); err != nil {
			return err
		}

		<-ctx.Done()
		signalStop()

		return tcp.Close()
	},
}

// palworldHandler answers the subset of the Palworld console that palrcon
// itself uses.
func palworldHandler(players []report.Player, log *zap.Logger) transport.Handler {
	mux := transport.NewMux(transport.Echo)

	mux.HandleFunc("Info", func(_ context.Context, _ string) (string, error) {
		version := meta.Version
		if version == "" {
			version = "dev"
		}

		return fmt.Sprintf("Welcome to Pal Server[v%s] palrcon\n", version), nil
	})

	mux.HandleFunc("ShowPlayers", func(_ context.Context, _ string) (string, error) {
		var b strings.Builder

		b.WriteString("name,playeruid,steamid\n")
		for _, p := range players {
			fmt.Fprintf(&b, "%s,%s,%s\n", p.Name, p.PlayerUID, p.SteamID)
		}

		return b.String(), nil
	})

	mux.HandleFunc("Broadcast", func(_ context.Context, command string) (string, error) {
		var message string
		if i := strings.IndexByte(command, ' '); i >= 0 {
			message = strings.TrimSpace(command[i+1:])
		}

		if message == "" {
			return "", errors.New("missing broadcast message")
		}

		log.Info("Broadcast", zap.String("message", message))
		return "Broadcasted: " + message, nil
	})

	return mux
}
