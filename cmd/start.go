package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	reuseport "github.com/kavu/go_reuseport"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luma/palrcon/client"
	"github.com/luma/palrcon/report"
	"github.com/luma/palrcon/storage"
	"github.com/luma/palrcon/webhook"
)

var (
	// The host to listen on
	host string

	// The port to listen for webhook requests on
	httpPort string
)

func init() {
	flags := StartCmd.PersistentFlags()

	flags.StringVar(&httpPort, "http-port", "3011", "The port to listen to webhook requests on")
	flags.StringVarP(&host, "host", "a", "0.0.0.0", "The host to listen on")
}

var StartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the palrcon webhook receiver",
	Long: `Start the palrcon webhook receiver

Events posted by the server protector are logged as reports for every server
in the servers file. When PALRCON_STATUS_INTERVAL is set, the players online on
every RCON enabled server are polled at that interval.

Usage
	palrcon start

`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx, signalStop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer signalStop()

		conf, log, err := loadEnv(ctx)
		if err != nil {
			return err
		}
		defer log.Sync() // nolint:errcheck

		fileLimit, err := setFileLimit()
		if err != nil {
			return err
		}

		log.Info("Set file limit", zap.Uint64("fileLimit", fileLimit))

		store, err := loadStore(ctx, conf, log)
		if err != nil {
			return err
		}
		defer store.Close()

		rcon := newClient(ctx, conf, log)

		hooks := webhook.NewServer(webhook.Options{Log: log.Named("webhook")})

		router := setupRouter(conf.DebugHTTP, log)
		hooks.Register(router)

		listener, err := reuseport.Listen("tcp", net.JoinHostPort(host, httpPort))
		if err != nil {
			return err
		}

		s := &http.Server{
			Handler: router,
		}

		// Serve in a goroutine so that it won't block the graceful shutdown
		// handling below
		go func() {
			if err := s.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Http server errored", zap.Error(err))
			}
		}()

		go reportMessages(ctx, store, hooks.Messages(), conf.Report.Filter(), log.Named("report"))

		if conf.StatusInterval > 0 {
			go pollPlayers(ctx, rcon, store, conf.StatusInterval, log.Named("status"))
		}

		log.Info("Listening",
			zap.Any("config", conf),
			zap.Stringer("addr", listener.Addr()))

		// Listen for the interrupt signal.
		<-ctx.Done()

		// Restore default behavior on the interrupt signal and notify user of shutdown.
		signalStop()
		log.Info("Shutting down gracefully, press Ctrl+C again to force")

		// The context is used to inform the server it has 5 seconds to finish
		// the request it is currently handling
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.SetKeepAlivesEnabled(false)

		if err := s.Shutdown(shutdownCtx); err != nil {
			log.Error("Http server forced to shutdown", zap.Error(err))
		}

		if err := rcon.Close(); err != nil {
			log.Error("Failed to close rcon connections", zap.Error(err))
		}

		log.Info("Exiting")
		return nil
	},
}

func setupRouter(debugHTTP bool, log *zap.Logger) *gin.Engine {
	gin.DisableConsoleColor()
	if !debugHTTP {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Access and error log, RFC3339 timestamps in UTC.
	r.Use(ginzap.GinzapWithConfig(log.Named("http"), &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
		SkipPaths:  []string{"/ping"},
	}))

	// Logs all panic to error log
	//   - stack means whether output the stack info.
	r.Use(ginzap.RecoveryWithZap(log, true))

	return r
}

// reportMessages logs a report for every message posted by a known server.
func reportMessages(ctx context.Context, store storage.Store, messages <-chan *webhook.Message, filter report.Filter, log *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return

		case msg := <-messages:
			server, err := storage.LookupServer(ctx, store, msg.Server)
			if err != nil {
				log.Warn("Ignoring message from unknown server",
					zap.Stringer("id", msg.ID),
					zap.String("server", msg.Server),
					zap.String("title", msg.Title))
				continue
			}

			r := report.Format(msg, server.Alias)
			if !filter.Enabled(r.Kind) {
				log.Debug("Report disabled",
					zap.Stringer("id", msg.ID),
					zap.Stringer("kind", r.Kind))
				continue
			}

			log.Info(r.Text,
				zap.Stringer("id", msg.ID),
				zap.Stringer("kind", r.Kind),
				zap.String("server", r.Server))
		}
	}
}

// pollPlayers logs the players online on every RCON enabled server each
// interval.
func pollPlayers(ctx context.Context, rcon *client.Client, store storage.Store, interval time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			servers, err := storage.Servers(ctx, store)
			if err != nil {
				if !errors.Is(err, storage.ErrNotFound) {
					log.Error("Failed to list servers", zap.Error(err))
				}
				continue
			}

			for _, server := range servers {
				if server.CanExec() != nil {
					continue
				}

				go func(server storage.Server) {
					execCtx, cancel := context.WithTimeout(ctx, interval)
					defer cancel()

					summary, n, err := showPlayers(execCtx, rcon, &server)
					if err != nil {
						log.Warn("Failed to poll players",
							zap.String("server", server.Host),
							zap.Error(err))
						return
					}

					log.Info(summary, zap.String("server", server.Host), zap.Int("players", n))
				}(server)
			}
		}
	}
}

func setFileLimit() (uint64, error) {
	var rLimit syscall.Rlimit

	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		return 0, err
	}

	rLimit.Cur = rLimit.Max
	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		return 0, err
	}

	return rLimit.Cur, nil
}
