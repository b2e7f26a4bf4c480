package main

import (
	"os"

	"github.com/KNICEX/auto-trader/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
