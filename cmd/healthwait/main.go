package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"healthwait"
	"healthwait/cmd/healthwait/ui"
)

// Exit codes: 0 all containers healthy or without checks, 1 timeout or
// runtime failure, 2 usage error.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// errUsage marks errors the caller can fix by invoking the tool correctly.
var errUsage = errors.New("usage")

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ui.ConfigureColors()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, opts := newRootCmd()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		renderError(os.Stderr, opts.quiet, err)
		return exitCode(err)
	}
	return exitOK
}

// renderError writes the failure to w. Quiet runs stay silent — the exit
// code carries the signal — except for usage errors, which the caller needs
// to see to fix the invocation.
func renderError(w io.Writer, quiet bool, err error) {
	if quiet && !errors.Is(err, errUsage) {
		return
	}
	fmt.Fprintln(w, ui.ErrorMsg("%v", err))
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, errUsage):
		return exitUsage
	case errors.Is(err, healthwait.ErrTimeout):
		return exitFailure
	default:
		return exitFailure
	}
}
