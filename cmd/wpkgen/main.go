package main

import (
	"os"

	"github.com/wpkernel/wpkgen/internal/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
