package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"

	"github.com/seoultechpse/fenicsx-setup/internal/logging"
	"github.com/seoultechpse/fenicsx-setup/internal/model"
)

// ProcessRunner runs commands as child processes of the current process.
type ProcessRunner struct {
	// Echo receives "$ <command line>" before each run. Nil disables echo.
	Echo io.Writer

	// Stdout and Stderr receive the child's output. Nil means os.Stdout
	// and os.Stderr.
	Stdout io.Writer
	Stderr io.Writer

	log zerolog.Logger
}

// NewProcessRunner creates a runner that echoes to and streams through
// the process's standard output.
func NewProcessRunner() *ProcessRunner {
	return &ProcessRunner{
		Echo: os.Stdout,
		log:  logging.Logger("exec"),
	}
}

// Run executes cmd and waits for it to finish.
func (r *ProcessRunner) Run(ctx context.Context, cmd Command) error {
	if r.Echo != nil {
		fmt.Fprintf(r.Echo, "$ %s\n", cmd)
	}

	c := r.build(ctx, cmd)
	c.Stdin = os.Stdin
	c.Stdout = orDefault(r.Stdout, os.Stdout)
	c.Stderr = orDefault(r.Stderr, os.Stderr)

	done := logging.LogOperationStart(r.log, cmd.Name)
	err := c.Run()
	done()

	return commandError(cmd, err, "")
}

// Output executes cmd and returns its trimmed stdout. Output is not echoed;
// it is meant for queries such as version checks.
func (r *ProcessRunner) Output(ctx context.Context, cmd Command) (string, error) {
	c := r.build(ctx, cmd)

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	if err != nil {
		return "", commandError(cmd, err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

func (r *ProcessRunner) build(ctx context.Context, cmd Command) *exec.Cmd {
	r.log.Debug().
		Str("command", cmd.Name).
		Strs("args", cmd.Args).
		Str("dir", cmd.Dir).
		Msg("Executing command")

	// #nosec G204 -- commands come from the bootstrap layout and config
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	return c
}

// commandError converts an exec error into a CLIError. A nil err yields nil.
func commandError(cmd Command, err error, stderr string) error {
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	var message string
	if errors.As(err, &exitErr) {
		message = fmt.Sprintf("command exited with status %d: %s", exitErr.ExitCode(), cmd)
	} else {
		message = fmt.Sprintf("command could not be run: %s", cmd)
	}
	if stderr != "" {
		message = fmt.Sprintf("%s: %s", message, stderr)
	}
	return model.WrapCLIError(model.ExitCommandFailed, message, err)
}

// ExitStatus extracts the child's exit status from an error returned by a
// Runner. It reports false when err does not stem from a process exit.
func ExitStatus(err error) (int, bool) {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), true
	}
	return 0, false
}

func orDefault(w, def io.Writer) io.Writer {
	if w == nil {
		return def
	}
	return w
}
