package main

import (
	"os"

	"github.com/opensoc/triagent/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
