package main

import (
	"os"

	"github.com/saamueldmg/olimpiadas-matematicas/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
