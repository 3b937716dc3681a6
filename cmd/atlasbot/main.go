package main

import (
	"os"

	"github.com/mvaldes/atlasbot/cmd/atlasbot/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
