package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/azargarov/parproc"
	"github.com/azargarov/parproc/internal/blobjob"
)

// Exit codes
const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitInvalidArgs  = 2
	ExitStorageError = 3
	ExitInterrupted  = 4
	ExitItemsFailed  = 5
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:]))
}

func run(ctx context.Context, args []string) int {
	cmd := newRootCommand()
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, parproc.ErrMonitorInterrupted) {
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
	}
	return exitCode(err)
}

// usageError marks errors caused by bad flags or configuration.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var usage usageError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &usage):
		return ExitInvalidArgs
	case errors.Is(err, parproc.ErrMonitorInterrupted):
		return ExitInterrupted
	case errors.Is(err, parproc.ErrItemFailed):
		return ExitItemsFailed
	case errors.Is(err, parproc.ErrWorkList), errors.Is(err, blobjob.ErrDestLocked):
		return ExitStorageError
	default:
		return ExitGeneralError
	}
}
