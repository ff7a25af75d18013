package extension

import (
	"fmt"

	"github.com/seoultechpse/fenicsx-setup/internal/execx"
)

// File is the decoded extension-definition file.
type File struct {
	Version int          `json:"version"`
	Magics  []Definition `json:"magics"`
}

// Definition is one shorthand command.
type Definition struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// Command is a text/template rendered with Vars.
	Command string `json:"command"`

	// MPI marks commands that launch multiple processes; only these
	// honour a process-count override.
	MPI bool `json:"mpi,omitempty"`

	// Source is the file the definition was loaded from.
	Source string `json:"-"`
}

// Vars are the template variables available to a Definition's command.
type Vars struct {
	Micromamba string
	Env        string
	Procs      int
	RepoDir    string
}

// Expand renders the command template and appends args verbatim.
func (d Definition) Expand(vars Vars, args ...string) (execx.Command, error) {
	if !d.MPI {
		vars.Procs = 1
	}
	cmd, err := execx.ParseCommandLine(d.Command, vars)
	if err != nil {
		return execx.Command{}, fmt.Errorf("magic %q: %w", d.Name, err)
	}
	cmd.Args = append(cmd.Args, args...)
	return cmd, nil
}
