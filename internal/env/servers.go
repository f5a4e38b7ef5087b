package env

import (
	"context"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/luma/palrcon/storage"
)

// ServersFile is the TOML file listing the managed servers:
//
//	[servers."192.168.1.20"]
//	alias = "home"
//	rcon = true
//	rcon_port = 25575
//	admin_password = "secret"
//	admins = [10001]
type ServersFile struct {
	Servers map[string]ServerEntry `toml:"servers"`
}

type ServerEntry struct {
	Alias         string  `toml:"alias"`
	RCON          bool    `toml:"rcon"`
	RCONPort      int     `toml:"rcon_port"`
	AdminPassword string  `toml:"admin_password"`
	Admins        []int64 `toml:"admins"`
}

func ReadServersFile(path string) (*ServersFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read servers file: %w", err)
	}

	file := &ServersFile{}
	if err := toml.Unmarshal(data, file); err != nil {
		return nil, fmt.Errorf("parse servers file: %w", err)
	}

	for host, entry := range file.Servers {
		if entry.RCONPort < 0 || entry.RCONPort > 65535 {
			return nil, fmt.Errorf("server %s: rcon_port %d out of range", host, entry.RCONPort)
		}
	}

	return file, nil
}

// LoadServers writes every server profile in the file at path into store and
// returns how many were loaded.
func LoadServers(ctx context.Context, path string, store storage.Store) (int, error) {
	file, err := ReadServersFile(path)
	if err != nil {
		return 0, err
	}

	for host, entry := range file.Servers {
		err := storage.PutServer(ctx, store, storage.Server{
			Host:          host,
			Alias:         entry.Alias,
			RCON:          entry.RCON,
			RCONPort:      entry.RCONPort,
			AdminPassword: entry.AdminPassword,
			Admins:        entry.Admins,
		})
		if err != nil {
			return 0, fmt.Errorf("store server %s: %w", host, err)
		}
	}

	return len(file.Servers), nil
}
