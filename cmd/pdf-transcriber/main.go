package main

import (
	"os"

	"github.com/spherical/pdf-transcriber/cmd/pdf-transcriber/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
