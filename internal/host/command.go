package host

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

const maxOutput = 10000

// CommandResult is the outcome of a command that started.
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner executes a command. It returns an error only when the command
// could not be started or was killed by ctx; a non-zero exit is reported
// through ExitCode.
type Runner func(ctx context.Context, name string, args ...string) (CommandResult, error)

// Run is the default Runner.
func Run(ctx context.Context, name string, args ...string) (CommandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := CommandResult{
		Stdout: truncate(stdout.String(), maxOutput),
		Stderr: truncate(stderr.String(), maxOutput),
	}
	if ctx.Err() != nil {
		return res, ctx.Err()
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, fmt.Errorf("run %s: %w", name, err)
	}
	return res, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "... (truncated)"
}
