// Package main provides the entry point for the marketsearch binary.
package main

import (
	"os"

	"github.com/syntrixbase/marketsearch/cmd/marketsearch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
