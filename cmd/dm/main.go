package main

import (
	"os"

	"github.com/jarvis-nvidia/dm/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
