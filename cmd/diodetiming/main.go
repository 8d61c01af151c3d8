package main

import (
	"os"

	"github.com/RyanBlaney/diode-timing/cmd/diodetiming/cli"
)

func main() {
	if err := cli.New().Execute(); err != nil {
		os.Exit(1)
	}
}
