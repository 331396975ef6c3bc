// Package main is the entry point for the grok CLI.
package main

import (
	"os"

	"github.com/diogo/grok-ask/pkg/client"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(client.ExitCode(err))
	}
}
