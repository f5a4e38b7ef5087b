package report

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/luma/palrcon/storage"
	"github.com/luma/palrcon/webhook"
)

// Titles posted by the server protector.
const (
	TitleTest              = "测试标题"
	TitleServerStarted     = "服务端启动成功"
	TitleServerStartFailed = "服务端启动失败"
	TitleSaveBackupCreated = "存档备份"
	TitleSaveBackupFailed  = "存档备份失败"
	TitleMemoryThreshold   = "内存达到警戒阈值"
	TitleRCONFailed        = "Rcon失败"
	TitlePlayerJoined      = "玩家加入游戏"
	TitlePlayerLeft        = "玩家离开游戏"
	TitleOnlinePlayers     = "在线玩家统计"
	joinedSuffix           = "加入了游戏"
	leftSuffix             = "离开了游戏"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindTest
	KindServerStarting
	KindSaveBackup
	KindMemoryThreshold
	KindRCONStatus
	KindPlayerJoining
	KindPlayerLeaving
	KindOnlinePlayers
)

func (k Kind) String() string {
	switch k {
	case KindUnknown:
		return "unknown"
	case KindTest:
		return "test"
	case KindServerStarting:
		return "server_starting"
	case KindSaveBackup:
		return "save_backup"
	case KindMemoryThreshold:
		return "memory_threshold"
	case KindRCONStatus:
		return "rcon_status"
	case KindPlayerJoining:
		return "player_joining"
	case KindPlayerLeaving:
		return "player_leaving"
	case KindOnlinePlayers:
		return "online_players"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Report is the human readable rendition of a webhook message.
type Report struct {
	Kind   Kind
	Server string
	Text   string
}

var memoryUsagePattern = regexp.MustCompile(`\d{1,2}(\.\d{1,2})?%`)

// Format renders msg for the server known as alias. An empty alias labels the
// report with the bare address.
func Format(msg *webhook.Message, alias string) Report {
	label := storage.Label(alias, msg.Server)
	r := Report{Server: msg.Server}

	var body string
	switch msg.Title {
	case TitleTest:
		r.Kind = KindTest
		body = "test report"

	case TitleServerStarted:
		r.Kind = KindServerStarting
		body = "server started"

	case TitleServerStartFailed:
		r.Kind = KindServerStarting
		body = "server failed to start"

	case TitleSaveBackupCreated:
		r.Kind = KindSaveBackup
		body = "save backup created"

	case TitleSaveBackupFailed:
		r.Kind = KindSaveBackup
		body = "save backup failed"

	case TitleMemoryThreshold:
		r.Kind = KindMemoryThreshold
		usage := memoryUsagePattern.FindString(msg.Content)
		if usage == "" {
			usage = "unknown"
		}
		body = "memory threshold reached\nmemory usage: " + usage

	case TitleRCONFailed:
		r.Kind = KindRCONStatus
		body = "rcon command failed"

	case TitlePlayerJoined:
		r.Kind = KindPlayerJoining
		body = fmt.Sprintf("player %q joined the server", playerName(msg.Content, joinedSuffix))

	case TitlePlayerLeft:
		r.Kind = KindPlayerLeaving
		body = fmt.Sprintf("player %q left the server", playerName(msg.Content, leftSuffix))

	case TitleOnlinePlayers:
		r.Kind = KindOnlinePlayers
		lines := strings.Split(msg.Content, "\n")
		body = "online players:\n" + strings.Join(lines[1:], "\n")

	default:
		r.Kind = KindUnknown
		body = fmt.Sprintf("title: %s\ncontent: %s", msg.Title, msg.Content)
	}

	r.Text = label + ": " + body
	return r
}

func playerName(content, suffix string) string {
	if i := strings.LastIndex(content, suffix); i >= 0 {
		return strings.TrimSpace(content[:i])
	}

	return strings.TrimSpace(content)
}

// Filter decides which kinds of reports are delivered.
type Filter map[Kind]bool

// Enabled reports whether k is delivered. Test reports never are.
func (f Filter) Enabled(k Kind) bool {
	if k == KindTest {
		return false
	}

	return f[k]
}
