package main

import (
	"os"

	"github.com/xtrntr/sharktank/cmd/sharkctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
