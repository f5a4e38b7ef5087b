package gen

import (
	"github.com/spf13/cobra"
)

var RootCmd = &cobra.Command{
	Use:   "gen",
	Short: "Generate palrcon documentation",
	Long:  `Generate palrcon documentation from the command tree`,
}

func init() {
	RootCmd.AddCommand(ManPagesCmd)
}
