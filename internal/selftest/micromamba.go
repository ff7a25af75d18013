package selftest

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/seoultechpse/fenicsx-setup/internal/execx"
	"github.com/seoultechpse/fenicsx-setup/internal/logging"
)

// MicromambaLauncher runs the test inside the micromamba environment
// created by the install script.
type MicromambaLauncher struct {
	// Micromamba is the path to the micromamba binary.
	Micromamba string
	Runner     execx.Runner

	log zerolog.Logger
}

// NewMicromambaLauncher creates a launcher using the given binary.
func NewMicromambaLauncher(micromamba string, runner execx.Runner) *MicromambaLauncher {
	return &MicromambaLauncher{
		Micromamba: micromamba,
		Runner:     runner,
		log:        logging.Logger("selftest"),
	}
}

// Command builds the self-test invocation:
//
//	<micromamba> run -n <env> mpiexec -n <procs> python <test>
//
// run in the repository directory.
func (l *MicromambaLauncher) Command(spec Spec) execx.Command {
	args := append([]string{"run", "-n", spec.Env}, mpiArgs(spec.procs(), "python", spec.TestFile)...)
	return execx.NewCommand(l.Micromamba, args...).InDir(spec.RepoDir)
}

// Run implements Launcher. A non-zero exit surfaces as the runner's
// ExitCommandFailed error.
func (l *MicromambaLauncher) Run(ctx context.Context, spec Spec) error {
	cmd := l.Command(spec)
	l.log.Debug().Str("env", spec.Env).Int("procs", spec.procs()).Msg("Running self-test")
	return l.Runner.Run(ctx, cmd)
}
