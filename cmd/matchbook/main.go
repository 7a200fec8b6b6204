package main

import (
	"os"

	"github.com/folio-labs/matchbook/cmd/matchbook/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
