package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version identifies this build. Overridden at link time via
// -ldflags "-X .../cmd.Version=...".
var Version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the engine version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("dictation-engine v%s (%s/%s, %s)\n", Version, runtime.GOOS, runtime.GOARCH, runtime.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
