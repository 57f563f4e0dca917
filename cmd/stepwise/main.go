package main

import (
	"errors"
	"fmt"
	"os"

	domain "github.com/alexisbeaulieu97/stepwise/internal/domain/wizard"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps configuration failures to 2 and everything else to 1.
func exitCode(err error) int {
	var blocked *domain.GateBlockedError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &blocked):
		return 3
	case domain.IsConfigurationError(err):
		return 2
	default:
		return 1
	}
}
