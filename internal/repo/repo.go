package repo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/Masterminds/vcs"
	"github.com/rs/zerolog"

	"github.com/seoultechpse/fenicsx-setup/internal/execx"
	"github.com/seoultechpse/fenicsx-setup/internal/logging"
	"github.com/seoultechpse/fenicsx-setup/internal/model"
)

// Inspection is the result of looking at the repository path.
type Inspection struct {
	State model.RepoState

	// Reason explains a RepoConflict state.
	Reason string

	// RemoteMismatch is set for a valid clone whose origin differs from
	// the configured URL.
	RemoteMismatch bool
}

// Synchronizer ensures a local clone of URL exists at Dir.
type Synchronizer struct {
	URL    string
	Dir    string
	Runner execx.Runner

	// Git runs the read-only git queries of Inspect. Nil uses a
	// ProcessRunner.
	Git execx.OutputRunner

	// Out receives progress lines. Nil discards them.
	Out io.Writer

	log zerolog.Logger
}

// NewSynchronizer creates a Synchronizer for the given remote and path.
func NewSynchronizer(url, dir string, runner execx.Runner) *Synchronizer {
	return &Synchronizer{
		URL:    url,
		Dir:    dir,
		Runner: runner,
		Git:    execx.NewProcessRunner(),
		log:    logging.Logger("repo"),
	}
}

// Inspect classifies the repository path without modifying it.
func (s *Synchronizer) Inspect() (Inspection, error) {
	info, err := os.Stat(s.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return Inspection{State: model.RepoAbsent}, nil
	}
	if err != nil {
		return Inspection{}, model.WrapCLIError(model.ExitGeneralError,
			fmt.Sprintf("cannot inspect %s", s.Dir), err)
	}
	if !info.IsDir() {
		return conflict("path is a file, not a directory"), nil
	}

	kind, err := vcs.DetectVcsFromFS(s.Dir)
	if err != nil {
		return conflict("no repository metadata found"), nil
	}
	if kind != vcs.Git {
		return conflict(fmt.Sprintf("path holds a %s repository, not git", kind)), nil
	}

	// Everything below shells out to git, so a missing binary is a tool
	// failure rather than a property of the path.
	if _, err := exec.LookPath("git"); err != nil {
		return Inspection{}, model.WrapCLIError(model.ExitCommandFailed,
			fmt.Sprintf("git is required to inspect %s", s.Dir), err).
			WithHint("Install git and re-run.")
	}

	if reason := s.checkGitDir(); reason != "" {
		return conflict(reason), nil
	}

	// NewGitRepo compares the clone's origin with the configured remote. It
	// also fails when origin is unset, e.g. a clone whose remote was renamed
	// to upstream; the metadata is intact, so that clone is kept as well.
	_, err = vcs.NewGitRepo(s.URL, s.Dir)
	if err == nil {
		return Inspection{State: model.RepoValid}, nil
	}
	if !errors.Is(err, vcs.ErrWrongRemote) {
		s.log.Debug().Str("dir", s.Dir).Str("error", describe(err)).Msg("Origin not readable")
	}
	return Inspection{State: model.RepoValid, RemoteMismatch: true}, nil
}

// checkGitDir returns an empty string when git resolves Dir/.git as the
// repository of Dir, and the reason otherwise. Without this check an empty
// or broken .git would let git walk up to an enclosing repository.
func (s *Synchronizer) checkGitDir() string {
	git := s.Git
	if git == nil {
		git = execx.NewProcessRunner()
	}
	out, err := git.Output(context.Background(),
		execx.NewCommand("git", "rev-parse", "--absolute-git-dir").InDir(s.Dir))
	if err != nil || !samePath(out, filepath.Join(s.Dir, ".git")) {
		return "repository metadata is incomplete"
	}
	return ""
}

func samePath(a, b string) bool {
	ra, errA := filepath.EvalSymlinks(a)
	rb, errB := filepath.EvalSymlinks(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return ra == rb
}

// Sync clones the repository when absent, accepts a valid clone, and
// fails with ExitConflictingState for anything else.
func (s *Synchronizer) Sync(ctx context.Context) error {
	insp, err := s.Inspect()
	if err != nil {
		return err
	}

	switch insp.State {
	case model.RepoAbsent:
		s.printf("📥 Cloning repository...\n")
		if err := s.Runner.Run(ctx, execx.NewCommand("git", "clone", s.URL, s.Dir)); err != nil {
			return err
		}
		return nil

	case model.RepoValid:
		if insp.RemoteMismatch {
			s.log.Warn().Str("dir", s.Dir).Str("expected", s.URL).
				Msg("Existing clone has a different origin; using it as-is")
		}
		s.printf("📦 Repo exists\n")
		return nil

	default:
		return model.NewCLIError(model.ExitConflictingState,
			fmt.Sprintf("%s exists but is not a valid clone: %s", s.Dir, insp.Reason),
		).WithHint("Move or delete the directory, or point repo.dir elsewhere.")
	}
}

func conflict(reason string) Inspection {
	return Inspection{State: model.RepoConflict, Reason: reason}
}

// describe flattens vcs errors, which keep the git output separately.
func describe(err error) string {
	var local *vcs.LocalError
	if errors.As(err, &local) {
		if out := local.Out(); out != "" {
			return fmt.Sprintf("%s (%s)", local.Error(), out)
		}
	}
	return err.Error()
}

func (s *Synchronizer) printf(format string, args ...any) {
	if s.Out != nil {
		fmt.Fprintf(s.Out, format, args...)
	}
}
