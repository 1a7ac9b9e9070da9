package main

import (
	"os"

	"github.com/rustyeddy/watchtrader/cmd/watchtrader/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
