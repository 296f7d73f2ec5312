// Command token issues and verifies identity tokens for the weeklog client.
package main

import (
	"fmt"
	"os"

	"github.com/dmitrijs2005/weeklog/internal/tokencmd"
)

func main() {
	if err := tokencmd.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
