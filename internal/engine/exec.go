package engine

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
)

// Executor runs one external program to completion.
type Executor interface {
	Run(dir string, cmd Command, out io.Writer) error
}

// ToolError is a compiler, archiver or linker invocation that did not succeed.
type ToolError struct {
	Cmd  Command
	Code int // process exit code, never 0
	Err  error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %v", e.Cmd.Name, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }

// ProcessExecutor runs commands as child processes.
type ProcessExecutor struct{}

func (ProcessExecutor) Run(dir string, cmd Command, out io.Writer) error {
	c := exec.Command(cmd.Name, cmd.Args...)
	c.Dir = dir
	c.Stdout = out
	c.Stderr = out
	if err := c.Run(); err != nil {
		return &ToolError{Cmd: cmd, Code: exitCode(err), Err: err}
	}
	return nil
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code > 0 {
			return code
		}
		return 1 // killed by a signal
	}
	if errors.Is(err, exec.ErrNotFound) {
		return 127
	}
	return 1
}
