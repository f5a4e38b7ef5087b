package env

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	"github.com/luma/palrcon/report"
)

type Config struct {
	DebugHTTP bool   `env:"PALRCON_DEBUG_HTTP"`
	LogLevel  string `env:"PALRCON_LOG_LEVEL,default=info"`

	AuthTimeout time.Duration `env:"PALRCON_AUTH_TIMEOUT,default=5s"`
	DialTimeout time.Duration `env:"PALRCON_DIAL_TIMEOUT,default=10s"`
	KeepAlive   time.Duration `env:"PALRCON_KEEP_ALIVE,default=30s"`

	ServersFile string `env:"PALRCON_SERVERS_FILE,default=servers.toml"`

	// StatusInterval is how often start polls ShowPlayers, 0 disables polling.
	StatusInterval time.Duration `env:"PALRCON_STATUS_INTERVAL,default=0"`

	Report ReportConfig
}

// ReportConfig enables report delivery per kind.
type ReportConfig struct {
	PlayerJoining   bool `env:"PALRCON_REPORT_PLAYER_JOINING,default=false"`
	PlayerLeaving   bool `env:"PALRCON_REPORT_PLAYER_LEAVING,default=false"`
	MemoryThreshold bool `env:"PALRCON_REPORT_MEMORY_THRESHOLD,default=true"`
	RCONStatus      bool `env:"PALRCON_REPORT_RCON_STATUS,default=true"`
	SaveBackup      bool `env:"PALRCON_REPORT_SAVE_BACKUP,default=false"`
	ServerStarting  bool `env:"PALRCON_REPORT_SERVER_STARTING,default=true"`
	OnlinePlayers   bool `env:"PALRCON_REPORT_ONLINE_PLAYERS,default=false"`
	Unknown         bool `env:"PALRCON_REPORT_UNKNOWN,default=true"`
}

func (r ReportConfig) Filter() report.Filter {
	return report.Filter{
		report.KindPlayerJoining:   r.PlayerJoining,
		report.KindPlayerLeaving:   r.PlayerLeaving,
		report.KindMemoryThreshold: r.MemoryThreshold,
		report.KindRCONStatus:      r.RCONStatus,
		report.KindSaveBackup:      r.SaveBackup,
		report.KindServerStarting:  r.ServerStarting,
		report.KindOnlinePlayers:   r.OnlinePlayers,
		report.KindUnknown:         r.Unknown,
	}
}

func LoadConfig(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(".env.local"); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	return ProcessConfig(ctx, envconfig.OsLookuper())
}

// ProcessConfig builds a Config from the variables visible through lookuper.
func ProcessConfig(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	config := Config{}

	if err := envconfig.ProcessWith(ctx, &config, lookuper); err != nil {
		return nil, err
	}

	return &config, nil
}
