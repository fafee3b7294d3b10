package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ppiankov/grayforge/internal/cli"
	"github.com/ppiankov/grayforge/internal/runner"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, runner.ErrInterrupted) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}
