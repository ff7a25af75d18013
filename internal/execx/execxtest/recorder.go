// Package execxtest provides a recording execx.Runner for tests.
package execxtest

import (
	"context"
	"strings"
	"sync"

	"github.com/seoultechpse/fenicsx-setup/internal/execx"
	"github.com/seoultechpse/fenicsx-setup/internal/model"
)

// Recorder is an execx.OutputRunner that records every command instead of
// running it. Commands succeed unless a failure rule matches.
type Recorder struct {
	mu       sync.Mutex
	commands []execx.Command
	fail     []rule
	outputs  map[string]string

	// OnRun, when set, is called for each command after it is recorded
	// and before failure rules apply. Tests use it to simulate side
	// effects such as a clone creating the target directory.
	OnRun func(cmd execx.Command) error
}

type rule struct {
	prefix string
	err    error
}

// FailOn makes every command whose line starts with prefix fail with err.
// A nil err is replaced by a generic ExitCommandFailed error.
func (r *Recorder) FailOn(prefix string, err error) *Recorder {
	if err == nil {
		err = model.NewCLIError(model.ExitCommandFailed, "command exited with status 1: "+prefix)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = append(r.fail, rule{prefix: prefix, err: err})
	return r
}

// SetOutput makes Output return out for commands starting with prefix.
func (r *Recorder) SetOutput(prefix, out string) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outputs == nil {
		r.outputs = make(map[string]string)
	}
	r.outputs[prefix] = out
	return r
}

// Run records cmd.
func (r *Recorder) Run(_ context.Context, cmd execx.Command) error {
	r.mu.Lock()
	r.commands = append(r.commands, cmd)
	onRun := r.OnRun
	r.mu.Unlock()

	if onRun != nil {
		if err := onRun(cmd); err != nil {
			return err
		}
	}
	return r.match(cmd)
}

// Output records cmd and returns the configured output.
func (r *Recorder) Output(ctx context.Context, cmd execx.Command) (string, error) {
	if err := r.Run(ctx, cmd); err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	line := cmd.String()
	for prefix, out := range r.outputs {
		if strings.HasPrefix(line, prefix) {
			return out, nil
		}
	}
	return "", nil
}

func (r *Recorder) match(cmd execx.Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	line := cmd.String()
	for _, f := range r.fail {
		if strings.HasPrefix(line, f.prefix) {
			return f.err
		}
	}
	return nil
}

// Commands returns a copy of the recorded commands in order.
func (r *Recorder) Commands() []execx.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]execx.Command(nil), r.commands...)
}

// Lines returns the recorded command lines in order.
func (r *Recorder) Lines() []string {
	cmds := r.Commands()
	lines := make([]string, len(cmds))
	for i, c := range cmds {
		lines[i] = c.String()
	}
	return lines
}

// Count returns how many recorded command lines start with prefix.
func (r *Recorder) Count(prefix string) int {
	n := 0
	for _, l := range r.Lines() {
		if strings.HasPrefix(l, prefix) {
			n++
		}
	}
	return n
}
