package main

import (
	"os"

	"github.com/procwave/procwave/cmd/procwave/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
