// Package stager runs the external command that drops Cegid exports into the
// tenant directories before an import pass.
package stager

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ErrNoCommand is returned when there is nothing to run.
var ErrNoCommand = errors.New("no stage command configured")

// waitDelay bounds how long output pipes are drained after a cancelled
// command is killed.
const waitDelay = 2 * time.Second

// Result is the captured outcome of one command run.
type Result struct {
	Command  string
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Run executes command through sh -c and waits for it. The run counts as
// failed when the command exits non-zero or writes anything to stderr; the
// Result is filled in either case.
func Run(ctx context.Context, command string) (Result, error) {
	res := Result{Command: strings.TrimSpace(command)}
	if res.Command == "" {
		return res, ErrNoCommand
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "sh", "-c", res.Command)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	start := time.Now()
	err := cmd.Run()
	res.Duration = time.Since(start)
	res.Stdout = strings.TrimSpace(stdout.String())
	res.Stderr = strings.TrimSpace(stderr.String())

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		}
		if res.Stderr != "" {
			return res, fmt.Errorf("stage command: %s: %w", res.Stderr, err)
		}
		return res, fmt.Errorf("stage command: %w", err)
	}
	if res.Stderr != "" {
		return res, fmt.Errorf("stage command wrote to stderr: %s", res.Stderr)
	}
	return res, nil
}
