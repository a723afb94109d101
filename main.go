package main

import (
	"os"

	"github.com/auglet/auglet/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
