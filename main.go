package main

import (
	"fmt"
	"os"

	"github.com/pdj555/job-engine/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
