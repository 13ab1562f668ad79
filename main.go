package main

import (
	"fmt"
	"os"

	"github.com/kyleking/query-runner/cmd"
	"github.com/kyleking/query-runner/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		for _, s := range errors.Suggestions(err) {
			fmt.Fprintf(os.Stderr, "  hint: %s\n", s)
		}

		os.Exit(1)
	}
}
