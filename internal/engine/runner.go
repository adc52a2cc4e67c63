package engine

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"
)

// DefaultCommandTimeout bounds the wall-clock time of a single command run.
const DefaultCommandTimeout = 10 * time.Second

// RunResult captures one command invocation.
type RunResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
	TimedOut bool
}

// Runner executes shell commands with a working directory and a bounded
// timeout. A timed-out or failing command is reported through RunResult and
// the returned error; it never hangs past the timeout.
type Runner struct {
	Timeout time.Duration
}

// NewRunner creates a runner with the default timeout.
func NewRunner() *Runner {
	return &Runner{Timeout: DefaultCommandTimeout}
}

// Run executes command via the shell with dir as the working directory.
func (r *Runner) Run(ctx context.Context, command, dir string) (RunResult, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir
	// Without WaitDelay, Wait blocks past the deadline on stdout/stderr pipes
	// held open by orphaned children of the killed shell.
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	res := RunResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if ctx.Err() == context.DeadlineExceeded {
		res.TimedOut = true
		res.ExitCode = -1
		return res, errors.New("command timed out")
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -1
		}
		return res, err
	}
	return res, nil
}
