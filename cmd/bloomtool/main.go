// Package main provides the entry point for the bloomtool CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/droberson/archbloom/cmd/bloomtool/commands"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	err := commands.NewRootCommand(version).Execute()
	if errors.Is(err, commands.ErrNotFound) {
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
