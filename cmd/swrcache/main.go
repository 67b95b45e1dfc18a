// Command swrcache loads, peeks and invalidates cached API entities from a terminal.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = color.New(color.FgRed).Fprintln(os.Stderr, "error:", err)
		fmt.Fprintln(os.Stderr, "run 'swrcache --help' for usage")
		os.Exit(1)
	}
}
