package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/venuecore/ticketd/internal/rpc"
)

// version is stamped at build time via -ldflags.
var version = "0.1.0-dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the ticketd version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ticketd %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rpc.Version = version
}
