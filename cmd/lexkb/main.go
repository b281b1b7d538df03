package main

import (
	"os"

	"github.com/korenlab/lexkb/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
