// Command narrascope approximates screen-reader narration for web pages and
// reports likely accessibility defects.
package main

import (
	"fmt"
	"os"

	"github.com/ppiankov/narrascope/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
