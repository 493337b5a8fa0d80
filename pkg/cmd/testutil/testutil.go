// Package testutil provides helpers for exercising CLI commands in tests.
package testutil

import (
	"bytes"
	"context"
	"testing"

	"github.com/urfave/cli/v3"
)

// RunCommand executes a command under a throwaway parent application and
// returns the error along with everything the command wrote to its writer.
func RunCommand(t *testing.T, command *cli.Command, args []string) (string, error) {
	t.Helper()
	return RunCommandWithContext(context.Background(), t, command, args)
}

// RunCommandWithContext is RunCommand with a caller-supplied context.
func RunCommandWithContext(ctx context.Context, t *testing.T, command *cli.Command, args []string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	app := &cli.Command{
		Name:     "test",
		Writer:   buf,
		Commands: []*cli.Command{command},
	}

	fullArgs := append([]string{"test", command.Name}, args...)
	err := app.Run(ctx, fullArgs)
	return buf.String(), err
}
