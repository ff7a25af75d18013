package selftest

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/seoultechpse/fenicsx-setup/internal/docker"
	"github.com/seoultechpse/fenicsx-setup/internal/logging"
	"github.com/seoultechpse/fenicsx-setup/internal/model"
)

// ContainerMountPath is where the repository appears inside the container.
const ContainerMountPath = "/work"

// ContainerRunner is the part of *docker.Client the launcher needs.
type ContainerRunner interface {
	RemoveStale(ctx context.Context) (int, error)
	RunContainer(ctx context.Context, opts docker.RunOptions) (int64, error)
}

// DockerLauncher runs the test in a container image that already ships the
// simulation framework and an MPI launcher.
type DockerLauncher struct {
	Image  string
	Client ContainerRunner

	// Out receives the echoed equivalent docker command line and the
	// container output. Nil means the client's defaults.
	Out io.Writer

	// Now stamps the created-at label. Defaults to time.Now.
	Now func() time.Time

	log zerolog.Logger
}

// NewDockerLauncher creates a launcher for image.
func NewDockerLauncher(image string, client ContainerRunner, out io.Writer) *DockerLauncher {
	return &DockerLauncher{
		Image:  image,
		Client: client,
		Out:    out,
		log:    logging.Logger("selftest"),
	}
}

// Options builds the container run for spec. The test file must live
// inside the repository, since only the repository is mounted.
func (l *DockerLauncher) Options(spec Spec) (docker.RunOptions, error) {
	rel, err := filepath.Rel(spec.RepoDir, spec.TestFile)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return docker.RunOptions{}, model.NewCLIError(model.ExitConfigInvalid,
			fmt.Sprintf("test file %s is outside the repository %s", spec.TestFile, spec.RepoDir))
	}

	now := time.Now
	if l.Now != nil {
		now = l.Now
	}

	return docker.RunOptions{
		Image:     l.Image,
		Cmd:       mpiArgs(spec.procs(), "python3", filepath.ToSlash(rel)),
		HostDir:   spec.RepoDir,
		MountPath: ContainerMountPath,
		Labels:    docker.BuildLabels(docker.PurposeSelfTest, spec.RepoDir, now()),
		Stdout:    l.Out,
		Stderr:    l.Out,
	}, nil
}

// Run implements Launcher.
func (l *DockerLauncher) Run(ctx context.Context, spec Spec) error {
	opts, err := l.Options(spec)
	if err != nil {
		return err
	}

	removed, err := l.Client.RemoveStale(ctx)
	if err != nil {
		return err
	}
	if removed > 0 {
		l.log.Info().Int("count", removed).Msg("Removed stale self-test containers")
	}

	line := commandLine(opts)
	if l.Out != nil {
		fmt.Fprintf(l.Out, "$ %s\n", line)
	}

	code, err := l.Client.RunContainer(ctx, opts)
	if err != nil {
		return err
	}
	if code != 0 {
		return model.NewCLIError(model.ExitCommandFailed,
			fmt.Sprintf("command exited with status %d: %s", code, line))
	}
	return nil
}

// commandLine renders the docker CLI equivalent of opts for the echo line.
func commandLine(opts docker.RunOptions) string {
	parts := []string{"docker", "run", "--rm",
		"-v", opts.HostDir + ":" + opts.MountPath,
		"-w", opts.MountPath,
		opts.Image,
	}
	return strings.Join(append(parts, opts.Cmd...), " ")
}
