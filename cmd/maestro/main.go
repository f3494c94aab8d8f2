package main

import (
	"os"

	"github.com/fmeurisse/maestro-sub001/cmd/maestro/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
