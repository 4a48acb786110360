package main

import (
	"os"

	"github.com/localdictate/engine/cmd/dictation-engine/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
