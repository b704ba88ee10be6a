// Package main provides the entry point for the neardup CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/Sumatoshi-tech/neardup/cmd/neardup/commands"
	"github.com/Sumatoshi-tech/neardup/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	err := commands.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
