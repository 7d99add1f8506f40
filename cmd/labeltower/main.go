package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matzehuels/labeltower/internal/cli"
	lterrors "github.com/matzehuels/labeltower/pkg/errors"
)

// Exit codes. Scripts driving labeltower over a distribution tell a broken
// label scheme apart from bad package input by them.
const (
	exitFailure     = 1
	exitScheme      = 2
	exitInput       = 3
	exitInterrupted = 130
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		os.Exit(report(os.Stderr, err))
	}
}

// report prints err and returns the exit code. Evidence lines are part of
// the message of a labeltower error.
func report(w io.Writer, err error) int {
	if errors.Is(err, context.Canceled) {
		return exitInterrupted
	}
	fmt.Fprintln(w, "error:", err)
	return exitCode(err)
}

func exitCode(err error) int {
	switch lterrors.GetCode(err) {
	case lterrors.ErrCodeConfiguration, lterrors.ErrCodeCycle, lterrors.ErrCodeInvalidLabel, lterrors.ErrCodeLabelNotFound:
		return exitScheme
	case lterrors.ErrCodeInvalidInput, lterrors.ErrCodeInvalidPackage, lterrors.ErrCodeInvalidFormat, lterrors.ErrCodeFileNotFound:
		return exitInput
	}
	return exitFailure
}

func run(ctx context.Context) error {
	var verbose bool

	c := cli.New(os.Stderr, cli.LogInfo)
	root := c.RootCommand()
	root.SilenceErrors = true
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log solver decisions and cache lookups")

	// The level must be set before the CLI's own pre-run loads the config.
	originalPreRun := root.PersistentPreRunE
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if verbose {
			c.SetLogLevel(cli.LogDebug)
		}
		if originalPreRun != nil {
			return originalPreRun(cmd, args)
		}
		return nil
	}

	return root.ExecuteContext(ctx)
}
