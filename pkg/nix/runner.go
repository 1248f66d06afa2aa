// Package nix runs the nix command-line tools that nixvault depends on.
//
// Every invocation goes through a [Runner] so that callers can be tested
// with a fake that never spawns a process. [ExecRunner] is the real
// implementation: one process per call, a hard per-command timeout, stdout
// captured separately from stderr.
package nix

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/nixvault/pkg/observability"
)

// ErrTimeout is returned (wrapped) when a command exceeds its timeout.
var ErrTimeout = errors.New("command timed out")

// Command describes one external process invocation.
type Command struct {
	Name    string        // executable, resolved through PATH
	Args    []string      // arguments
	Dir     string        // working directory (optional)
	Timeout time.Duration // hard limit; zero means no limit beyond ctx
}

// String renders the command line for logs.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Result is the captured output of a finished command.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
}

// CommandError is returned when a command exits with a non-zero status.
type CommandError struct {
	Command  string
	ExitCode int
	Stderr   string
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	msg := summary(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("%s: exit status %d", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("%s: exit status %d: %s", e.Command, e.ExitCode, msg)
}

// Runner executes external commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, cmd Command) (Result, error)

// Run calls f(ctx, cmd).
func (f RunnerFunc) Run(ctx context.Context, cmd Command) (Result, error) { return f(ctx, cmd) }

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	Logger *log.Logger
}

// NewExecRunner creates an ExecRunner. A nil logger discards output.
func NewExecRunner(logger *log.Logger) *ExecRunner {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &ExecRunner{Logger: logger}
}

// Run starts cmd and waits for it. A deadline hit returns an error wrapping
// ErrTimeout; a non-zero exit returns a *CommandError. The partial output is
// returned in both cases.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Stdout = &stdout
	c.Stderr = &stderr
	c.WaitDelay = time.Second

	r.Logger.Debug("exec", "cmd", cmd.String())
	start := time.Now()
	err := c.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes(), Duration: time.Since(start)}
	observability.Command().OnCommand(ctx, cmd.Name, res.Duration, err)

	if err == nil {
		return res, nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return res, fmt.Errorf("%s: %w after %s", cmd.Name, ErrTimeout, cmd.Timeout)
	}
	if ctx.Err() != nil {
		return res, ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if stderr.Len() > 0 {
			r.Logger.Debug("exec failed", "cmd", cmd.Name, "stderr", summary(stderr.String()))
		}
		return res, &CommandError{Command: cmd.Name, ExitCode: exitErr.ExitCode(), Stderr: stderr.String()}
	}
	return res, fmt.Errorf("failed to exec %s: %w", cmd.Name, err)
}

// summary returns the most useful line of nix stderr: the last line that
// starts with "error:", or the last non-empty line.
func summary(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); strings.HasPrefix(l, "error:") {
			return l
		}
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
