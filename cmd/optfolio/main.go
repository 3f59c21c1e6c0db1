package main

import (
	"os"

	"github.com/rustyeddy/optfolio/cmd/optfolio/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
