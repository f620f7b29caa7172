package main

import (
	"os"

	"github.com/conneroisu/isle/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
