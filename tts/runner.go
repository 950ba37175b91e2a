package tts

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// CommandRunner abstracts external process execution so native providers
// can be exercised in tests without spawning OS binaries.
type CommandRunner interface {
	// LookPath searches for an executable in PATH, like exec.LookPath.
	LookPath(file string) (string, error)

	// Run executes a command to completion, capturing stdout and stderr.
	// A started process that exits nonzero is not an error: the exit code
	// is reported in RunResult and the caller decides how to surface it.
	// Run returns an error only when the process could not be started or
	// the context ended first.
	Run(ctx context.Context, name string, args ...string) (RunResult, error)
}

// RunResult holds the outcome of a finished command.
type RunResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// ExecRunner is the production CommandRunner backed by os/exec.
type ExecRunner struct{}

// NewExecRunner creates an ExecRunner.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// LookPath implements CommandRunner.
func (r *ExecRunner) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

// Run implements CommandRunner.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (RunResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := RunResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, err
	}
	return res, nil
}

var _ CommandRunner = (*ExecRunner)(nil)
