package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/luma/palrcon/cmd/gen"
)

var RootCmd = &cobra.Command{
	Use:   "palrcon",
	Short: "Administer Palworld servers over RCON",
	Long: `palrcon keeps authenticated RCON connections to Palworld servers, runs
console commands on them and reports the events posted by the server
protector webhook.`,
	SilenceUsage: true,
}

func init() {
	RootCmd.AddCommand(StartCmd)
	RootCmd.AddCommand(ExecCmd)
	RootCmd.AddCommand(StatusCmd)
	RootCmd.AddCommand(ServeCmd)
	RootCmd.AddCommand(VersionCmd)
	RootCmd.AddCommand(gen.RootCmd)
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
