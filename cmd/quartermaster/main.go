// quartermaster is the procurement planning CLI: catalog search, ranked
// plans with deterministic tool investigation, negotiation review, and cost
// optimization, all against a local catalog file.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// Best effort; a missing .env is the normal case.
	_ = godotenv.Load()

	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, red("Error:"), err)
		os.Exit(1)
	}
}
