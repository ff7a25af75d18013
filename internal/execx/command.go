package execx

import (
	"context"
	"strings"
)

// Command describes one external process invocation.
type Command struct {
	// Name is the executable, looked up in PATH when not a path.
	Name string

	// Args are passed verbatim; no shell is involved.
	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env holds extra KEY=VALUE entries appended to the inherited
	// environment.
	Env []string
}

// NewCommand builds a Command running name with args.
func NewCommand(name string, args ...string) Command {
	return Command{Name: name, Args: append([]string(nil), args...)}
}

// InDir returns a copy of c with the working directory set.
func (c Command) InDir(dir string) Command {
	c.Dir = dir
	return c
}

// Argv returns the full argument vector, executable first.
func (c Command) Argv() []string {
	return append([]string{c.Name}, c.Args...)
}

// String renders the command line the way it is echoed before running.
func (c Command) String() string {
	return strings.Join(c.Argv(), " ")
}

// Runner executes commands. Implementations must return a non-nil error
// for any command that does not exit zero.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// OutputRunner is a Runner that can also capture a command's stdout.
type OutputRunner interface {
	Runner
	Output(ctx context.Context, cmd Command) (string, error)
}
