package cli

import (
	"github.com/spf13/cobra"

	"github.com/korenlab/lexkb/internal/configstore"
)

// Version is set at build time via ldflags.
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("lexkb %s\n", Version)
		cmd.Printf("SQLite driver: %s\n", configstore.DriverName)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
