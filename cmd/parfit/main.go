package main

import (
	"os"

	"github.com/parfit-dev/parfit/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
