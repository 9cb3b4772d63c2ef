package main

import (
	"os"

	"github.com/psantana5/navloader/cmd/navload/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
