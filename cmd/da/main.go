package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	daerrors "da/internal/errors"
)

// Exit codes.
const (
	exitOK        = 0
	exitFailure   = 1
	exitViolation = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line and returns the process exit code. A failure
// prints exactly one message to stderr and nothing further to stdout.
func run(args []string, stdout, stderr io.Writer) int {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	setContext(ctx, rootCmd)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return exitCode(err)
}

// setContext gives every command the context of this run. Cobra hands the
// parent's context only to subcommands without one, so a reused tree would
// otherwise keep the cancelled context of an earlier run.
func setContext(ctx context.Context, cmd *cobra.Command) {
	cmd.SetContext(ctx)
	for _, c := range cmd.Commands() {
		setContext(ctx, c)
	}
}

// exitCode maps rule violations to exitViolation and every other failure to
// exitFailure.
func exitCode(err error) int {
	if daerrors.IsCode(err, daerrors.RuleViolation) {
		return exitViolation
	}
	return exitFailure
}
