package report_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/palrcon/report"
)

var _ = Describe("report / players", func() {
	It("parses the ShowPlayers reply", func() {
		players := report.ParsePlayers("name,playeruid,steamid\nAlice,111,76561190000000001\n\n幻兽,222,76561190000000002\n")

		Expect(players).To(Equal([]report.Player{
			{Name: "Alice", PlayerUID: "111", SteamID: "76561190000000001"},
			{Name: "幻兽", PlayerUID: "222", SteamID: "76561190000000002"},
		}))
	})

	It("returns no players for a bare header", func() {
		Expect(report.ParsePlayers("name,playeruid,steamid\n")).To(BeEmpty())
		Expect(report.ParsePlayers("")).To(BeEmpty())
	})

	It("tolerates short lines", func() {
		Expect(report.ParsePlayers("name,playeruid,steamid\nAlice,111")).To(Equal([]report.Player{
			{Name: "Alice", PlayerUID: "111"},
		}))
	})

	It("ignores fields after the steam id", func() {
		Expect(report.ParsePlayers("name,playeruid,steamid\nAlice,111,765,extra,fields")).To(Equal([]report.Player{
			{Name: "Alice", PlayerUID: "111", SteamID: "765"},
		}))
	})

	It("renders a summary", func() {
		summary := report.PlayerSummary("main (10.0.0.1)", []report.Player{
			{Name: "Alice", PlayerUID: "111", SteamID: "765"},
		})

		Expect(summary).To(Equal("server main (10.0.0.1)\nplayers online: 1\nplayer list:\nAlice:\n UID: 111\n Steam ID: 765"))
	})
})
