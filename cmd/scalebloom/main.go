// Command scalebloom creates, queries and maintains scalebloom filter files.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newApp(os.Stdin, os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "scalebloom: %v\n", err)
		os.Exit(1)
	}
}
