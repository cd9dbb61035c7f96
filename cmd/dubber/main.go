package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"dubber/internal/services"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, "dubber:", err)
		// Bad input and bad configuration exit distinctly so scripts can
		// tell operator mistakes from runtime failures.
		if errors.Is(err, services.ErrValidation) || errors.Is(err, services.ErrConfiguration) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
