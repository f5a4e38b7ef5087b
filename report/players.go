package report

import (
	"fmt"
	"strings"
)

// Player is one line of the ShowPlayers reply.
type Player struct {
	Name      string
	PlayerUID string
	SteamID   string
}

// ParsePlayers parses the body of a ShowPlayers reply:
//
//	name,playeruid,steamid
//	Alice,1234567890,76561190000000000
func ParsePlayers(body string) []Player {
	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")

	players := make([]Player, 0, len(lines))
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Split(line, ",")
		for len(fields) < 3 {
			fields = append(fields, "")
		}

		players = append(players, Player{
			Name:      fields[0],
			PlayerUID: fields[1],
			SteamID:   strings.TrimRight(fields[2], "\x00"),
		})
	}

	return players
}

func PlayerSummary(label string, players []Player) string {
	var b strings.Builder

	fmt.Fprintf(&b, "server %s\nplayers online: %d\nplayer list:", label, len(players))
	for _, p := range players {
		fmt.Fprintf(&b, "\n%s:\n UID: %s\n Steam ID: %s", p.Name, p.PlayerUID, p.SteamID)
	}

	return b.String()
}
