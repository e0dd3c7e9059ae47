// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Command graveyard talks to a graveyard event store from the shell and can
// serve the in-memory reference store for local development.
package main

import (
	"os"

	"github.com/fatih/color"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "error: ")
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}
