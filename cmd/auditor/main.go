package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/errors"
)

// Exit codes
const (
	exitSuccess     = 0
	exitFailure     = 1
	exitConfigError = 2
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitSuccess
	case errors.IsType(err, errors.ErrorTypeConfiguration):
		return exitConfigError
	default:
		return exitFailure
	}
}
