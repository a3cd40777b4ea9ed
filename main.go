package main

import (
	"fmt"
	"os"

	"github.com/kerraform/kelock/internal/cli"
)

const (
	exitOk = iota
	exitError
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitError)
	}

	os.Exit(exitOk)
}
