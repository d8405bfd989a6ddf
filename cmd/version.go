package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the actiond release version, overridden at build time via
// -ldflags "-X github.com/cflux-app/actiond/cmd.Version=...".
var Version = "0.3.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the actiond version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("actiond v%s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
