package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the reader release, overridable with -ldflags "-X"
var Version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show reader version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Sidechain Reader v%s\n", Version)
	},
}
