// cmd/hostpkg/main.go
// cmd/hostpkg/main.go
package main

import (
	"fmt"
	"os"

	"github.com/arc-language/hostpkg/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
