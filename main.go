package main

import (
	"os"

	"github.com/scenrun/scenrun/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
