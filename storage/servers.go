package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// Server is the profile of a game server reachable over RCON.
type Server struct {
	Host          string  `json:"-"`
	Alias         string  `json:"alias,omitempty"`
	RCON          bool    `json:"rcon"`
	RCONPort      int     `json:"rconPort,omitempty"`
	AdminPassword string  `json:"adminPassword,omitempty"`
	Admins        []int64 `json:"admins,omitempty"`
}

// Label is the human readable name of the server: "alias (host)" when it has
// an alias, the bare host otherwise.
func (s *Server) Label() string {
	return Label(s.Alias, s.Host)
}

// CanExec reports whether the profile holds everything needed to run RCON
// commands, and why not otherwise.
func (s *Server) CanExec() error {
	switch {
	case !s.RCON:
		return fmt.Errorf("rcon is not enabled for %s", s.Host)
	case s.AdminPassword == "":
		return fmt.Errorf("no admin password configured for %s", s.Host)
	case s.RCONPort == 0:
		return fmt.Errorf("no rcon port configured for %s", s.Host)
	}

	return nil
}

func Label(alias, host string) string {
	if alias == "" {
		return host
	}

	return alias + " (" + host + ")"
}

var pathEscaper = strings.NewReplacer(
	`\`, `\\`,
	`.`, `\.`,
	`*`, `\*`,
	`?`, `\?`,
	`|`, `\|`,
	`#`, `\#`,
	`@`, `\@`,
)

func serverKey(host string) []byte {
	return []byte("servers." + pathEscaper.Replace(host))
}

func PutServer(ctx context.Context, store Store, server Server) error {
	if server.Host == "" {
		return fmt.Errorf("server profile has no host")
	}

	return store.Set(ctx, serverKey(server.Host), server)
}

func RemoveServer(ctx context.Context, store Store, host string) error {
	return store.Delete(ctx, serverKey(host))
}

func LookupServer(ctx context.Context, store Store, host string) (*Server, error) {
	raw, err := store.Get(ctx, serverKey(host))
	if err != nil {
		return nil, err
	}

	server := parseServer(host, gjson.ParseBytes(raw))
	return &server, nil
}

// Servers returns every server profile ordered by host.
func Servers(ctx context.Context, store Store) ([]Server, error) {
	raw, err := store.Get(ctx, []byte("servers"))
	if err != nil {
		return nil, err
	}

	var servers []Server
	gjson.ParseBytes(raw).ForEach(func(key, value gjson.Result) bool {
		servers = append(servers, parseServer(key.String(), value))
		return true
	})

	sort.Slice(servers, func(a, b int) bool {
		return servers[a].Host < servers[b].Host
	})

	return servers, nil
}

// Alias returns the alias of host, or "" when it has none.
func Alias(ctx context.Context, store Store, host string) string {
	server, err := LookupServer(ctx, store, host)
	if err != nil {
		return ""
	}

	return server.Alias
}

func parseServer(host string, r gjson.Result) Server {
	server := Server{
		Host:          host,
		Alias:         r.Get("alias").String(),
		RCON:          r.Get("rcon").Bool(),
		RCONPort:      int(r.Get("rconPort").Int()),
		AdminPassword: r.Get("adminPassword").String(),
	}

	for _, admin := range r.Get("admins").Array() {
		server.Admins = append(server.Admins, admin.Int())
	}

	return server
}
