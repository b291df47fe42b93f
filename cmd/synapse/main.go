package main

import (
	"os"

	"github.com/lazypower/synapse/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
