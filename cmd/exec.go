package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luma/palrcon/client"
	"github.com/luma/palrcon/internal/env"
	"github.com/luma/palrcon/report"
	"github.com/luma/palrcon/storage"
)

var (
	execHost     string
	execPort     int
	execPassword string
	execTimeout  time.Duration
)

func init() {
	for _, c := range []*cobra.Command{ExecCmd, StatusCmd} {
		flags := c.Flags()

		flags.StringVar(&execHost, "host", "", "The server to connect to")
		flags.IntVarP(&execPort, "port", "p", 0, "The RCON port, defaults to the server profile")
		flags.StringVar(&execPassword, "password", "", "The admin password, defaults to the server profile")
		flags.DurationVar(&execTimeout, "timeout", 10*time.Second, "How long to wait for the reply")
	}
}

var ExecCmd = &cobra.Command{
	Use:   "exec <command...>",
	Short: "Run one console command on a server",
	Long: `Run one console command on a server and print its reply

Usage
	palrcon exec --host 192.168.1.20 Broadcast Restarting_in_5_minutes

`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if execHost == "" {
			return errors.New("--host is required")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), execTimeout)
		defer cancel()

		conf, log, err := loadEnv(ctx)
		if err != nil {
			return err
		}
		defer log.Sync() // nolint:errcheck

		server, err := resolveServer(ctx, conf, log)
		if err != nil {
			return err
		}

		rcon := newClient(ctx, conf, log)
		defer rcon.Close()

		resp, err := rcon.Exec(ctx, server.Host, server.RCONPort, server.AdminPassword, strings.Join(args, " "))
		if err != nil {
			return fmt.Errorf("%s: %w", server.Label(), err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), resp.UTF8())
		return nil
	},
}

var StatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the players online",
	Long: `Show the players online on one server, or on every RCON enabled server
in the servers file when --host is not given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), execTimeout)
		defer cancel()

		conf, log, err := loadEnv(ctx)
		if err != nil {
			return err
		}
		defer log.Sync() // nolint:errcheck

		var servers []storage.Server
		if execHost != "" {
			server, err := resolveServer(ctx, conf, log)
			if err != nil {
				return err
			}
			servers = append(servers, *server)
		} else {
			store, err := loadStore(ctx, conf, log)
			if err != nil {
				return err
			}
			defer store.Close()

			all, err := storage.Servers(ctx, store)
			if err != nil && !errors.Is(err, storage.ErrNotFound) {
				return err
			}

			for _, server := range all {
				if server.CanExec() == nil {
					servers = append(servers, server)
				}
			}

			if len(servers) == 0 {
				return errors.New("no RCON enabled server in " + conf.ServersFile)
			}
		}

		rcon := newClient(ctx, conf, log)
		defer rcon.Close()

		for i := range servers {
			summary, _, err := showPlayers(ctx, rcon, &servers[i])
			if err != nil {
				return fmt.Errorf("%s: %w", servers[i].Label(), err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), summary)
		}

		return nil
	},
}

// resolveServer combines the command line flags with the server profile of
// --host. Flags win over the profile.
func resolveServer(ctx context.Context, conf *env.Config, log *zap.Logger) (*storage.Server, error) {
	server := &storage.Server{Host: execHost, RCON: true}

	if execPort == 0 || execPassword == "" {
		store, err := loadStore(ctx, conf, log)
		if err != nil {
			return nil, err
		}
		defer store.Close()

		profile, err := storage.LookupServer(ctx, store, execHost)
		switch {
		case err == nil:
			server = profile
		case !errors.Is(err, storage.ErrNotFound):
			return nil, err
		}
	}

	if execPort != 0 {
		server.RCONPort = execPort
	}

	if execPassword != "" {
		server.AdminPassword = execPassword
	}

	if err := server.CanExec(); err != nil {
		return nil, err
	}

	return server, nil
}

func showPlayers(ctx context.Context, rcon *client.Client, server *storage.Server) (string, int, error) {
	resp, err := rcon.Exec(ctx, server.Host, server.RCONPort, server.AdminPassword, "ShowPlayers")
	if err != nil {
		return "", 0, err
	}

	players := report.ParsePlayers(resp.UTF8())
	return report.PlayerSummary(server.Label(), players), len(players), nil
}
