package doctor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog"

	"github.com/seoultechpse/fenicsx-setup/internal/execx"
	"github.com/seoultechpse/fenicsx-setup/internal/extension"
	"github.com/seoultechpse/fenicsx-setup/internal/logging"
	"github.com/seoultechpse/fenicsx-setup/internal/model"
	"github.com/seoultechpse/fenicsx-setup/internal/repo"
)

// MinGitVersion is the oldest git the bootstrap is known to work with.
const MinGitVersion = ">= 2.0.0"

var versionPattern = regexp.MustCompile(`\d+\.\d+(\.\d+)?`)

// MountChecker is satisfied by *gate.Gate.
type MountChecker interface {
	Mounted() bool
}

// RepoInspector is satisfied by *repo.Synchronizer.
type RepoInspector interface {
	Inspect() (repo.Inspection, error)
}

// Pinger is satisfied by *docker.Client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Doctor runs the read-only checks.
type Doctor struct {
	Layout model.Layout
	Mount  MountChecker
	Repo   RepoInspector
	Runner execx.OutputRunner

	// Docker is checked only when non-nil, i.e. for the docker launcher.
	Docker Pinger

	// LookPath defaults to exec.LookPath.
	LookPath func(file string) (string, error)

	log zerolog.Logger
}

// New creates a Doctor.
func New(layout model.Layout, mount MountChecker, r RepoInspector, runner execx.OutputRunner) *Doctor {
	return &Doctor{
		Layout: layout,
		Mount:  mount,
		Repo:   r,
		Runner: runner,
		log:    logging.Logger("doctor"),
	}
}

// Run executes every check and returns the report. Individual check
// failures are recorded in the report, never returned.
func (d *Doctor) Run(ctx context.Context) Report {
	var r Report
	d.checkStorage(&r)
	d.checkRepo(&r)
	d.checkGit(ctx, &r)
	d.checkTool(&r, "bash")
	d.checkMicromamba(ctx, &r)
	d.checkExtension(&r)
	if d.Docker != nil {
		d.checkDocker(ctx, &r)
	}
	return r
}

func (d *Doctor) checkStorage(r *Report) {
	if d.Mount.Mounted() {
		r.add("storage", StatusOK, 0, "%s", d.Layout.MountPoint)
		return
	}
	r.add("storage", StatusMiss, model.ExitStorageNotMounted, "%s not mounted", d.Layout.MountPoint)
}

func (d *Doctor) checkRepo(r *Report) {
	insp, err := d.Repo.Inspect()
	if err != nil {
		r.add("repository", StatusFail, model.ExitCodeOf(err), "%v", err)
		return
	}
	switch insp.State {
	case model.RepoAbsent:
		r.add("repository", StatusWarn, 0, "%s not cloned yet", d.Layout.RepoDir)
	case model.RepoValid:
		if insp.RemoteMismatch {
			r.add("repository", StatusWarn, 0, "%s has a different origin", d.Layout.RepoDir)
			return
		}
		r.add("repository", StatusOK, 0, "%s", d.Layout.RepoDir)
	default:
		r.add("repository", StatusFail, model.ExitConflictingState, "%s: %s", d.Layout.RepoDir, insp.Reason)
	}
}

func (d *Doctor) checkGit(ctx context.Context, r *Report) {
	if !d.checkTool(r, "git") {
		return
	}
	out, err := d.Runner.Output(ctx, execx.NewCommand("git", "--version"))
	if err != nil {
		r.add("git version", StatusFail, model.ExitCommandFailed, "%v", err)
		return
	}
	v, err := ParseVersion(out)
	if err != nil {
		r.add("git version", StatusWarn, 0, "%v", err)
		return
	}
	ok, err := Satisfies(v, MinGitVersion)
	if err != nil {
		r.add("git version", StatusFail, model.ExitGeneralError, "%v", err)
		return
	}
	if !ok {
		r.add("git version", StatusFail, model.ExitCommandFailed, "%s does not satisfy %s", v, MinGitVersion)
		return
	}
	r.add("git version", StatusOK, 0, "%s", v)
}

// checkTool reports whether name is on PATH.
func (d *Doctor) checkTool(r *Report, name string) bool {
	lookPath := d.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	path, err := lookPath(name)
	if err != nil {
		r.add(name, StatusMiss, model.ExitCommandFailed, "not found in PATH")
		return false
	}
	r.add(name, StatusOK, 0, "%s", path)
	return true
}

// checkMicromamba never fails: the install script provides the binary.
func (d *Doctor) checkMicromamba(ctx context.Context, r *Report) {
	if _, err := os.Stat(d.Layout.Micromamba); err != nil {
		r.add("micromamba", StatusWarn, 0, "%s not installed yet", d.Layout.Micromamba)
		return
	}
	out, err := d.Runner.Output(ctx, execx.NewCommand(d.Layout.Micromamba, "--version"))
	if err != nil {
		d.log.Debug().Err(err).Msg("micromamba --version failed")
		r.add("micromamba", StatusWarn, 0, "%s present, version unknown", d.Layout.Micromamba)
		return
	}
	if v, err := ParseVersion(out); err == nil {
		r.add("micromamba", StatusOK, 0, "%s (%s)", d.Layout.Micromamba, v)
		return
	}
	r.add("micromamba", StatusOK, 0, "%s", d.Layout.Micromamba)
}

func (d *Doctor) checkExtension(r *Report) {
	data, err := os.ReadFile(d.Layout.ExtensionFile)
	if errors.Is(err, os.ErrNotExist) {
		f, err := extension.Builtin()
		if err != nil {
			r.add("extension", StatusFail, model.ExitExtensionInvalid, "%v", err)
			return
		}
		r.add("extension", StatusWarn, 0, "%s not present, %d built-in magic(s) will be used",
			d.Layout.ExtensionFile, len(f.Magics))
		return
	}
	if err != nil {
		r.add("extension", StatusFail, model.ExitExtensionInvalid, "%v", err)
		return
	}
	f, err := extension.Parse(data, d.Layout.ExtensionFile)
	if err != nil {
		r.add("extension", StatusFail, model.ExitExtensionInvalid, "%v", err)
		return
	}
	r.add("extension", StatusOK, 0, "%d magic(s) defined", len(f.Magics))
}

func (d *Doctor) checkDocker(ctx context.Context, r *Report) {
	if err := d.Docker.Ping(ctx); err != nil {
		r.add("docker", StatusFail, model.ExitDockerNotRunning, "%v", err)
		return
	}
	r.add("docker", StatusOK, 0, "daemon reachable")
}

// ParseVersion extracts the first dotted version number from tool output
// such as "git version 2.39.3 (Apple Git-145)".
func ParseVersion(out string) (*semver.Version, error) {
	m := versionPattern.FindString(out)
	if m == "" {
		return nil, fmt.Errorf("no version number in %q", out)
	}
	return semver.NewVersion(m)
}

// Satisfies reports whether v meets constraint.
func Satisfies(v *semver.Version, constraint string) (bool, error) {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return false, fmt.Errorf("parsing constraint %q: %w", constraint, err)
	}
	return c.Check(v), nil
}
