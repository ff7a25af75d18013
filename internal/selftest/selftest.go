package selftest

import (
	"context"
	"strconv"

	"github.com/seoultechpse/fenicsx-setup/internal/model"
)

// Spec describes one self-test run.
type Spec struct {
	RepoDir  string
	TestFile string
	Env      string

	// Procs is the MPI process count. Values below 1 mean DefaultTestProcs.
	Procs int
}

// Launcher runs a self-test and returns nil only if it exited zero.
type Launcher interface {
	Run(ctx context.Context, spec Spec) error
}

func (s Spec) procs() int {
	if s.Procs < 1 {
		return model.DefaultTestProcs
	}
	return s.Procs
}

// mpiArgs is the mpiexec invocation shared by both backends.
func mpiArgs(procs int, python, testFile string) []string {
	return []string{"mpiexec", "-n", strconv.Itoa(procs), python, testFile}
}
