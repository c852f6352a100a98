package main

import (
	"os"

	"github.com/formlab/formrules/cmd/formrules/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
