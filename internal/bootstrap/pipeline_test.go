package bootstrap

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seoultechpse/fenicsx-setup/internal/execx"
	"github.com/seoultechpse/fenicsx-setup/internal/execx/execxtest"
	"github.com/seoultechpse/fenicsx-setup/internal/extension"
	"github.com/seoultechpse/fenicsx-setup/internal/gate"
	"github.com/seoultechpse/fenicsx-setup/internal/model"
	"github.com/seoultechpse/fenicsx-setup/internal/repo"
	"github.com/seoultechpse/fenicsx-setup/internal/selftest"
	"github.com/seoultechpse/fenicsx-setup/internal/style"
)

const testURL = "https://example.com/seoultechpse/fenicsx-colab.git"

const magicFile = `{
  "version": 1,
  "magics": [
    { "name": "fenicsx", "mpi": true,
      "command": "{{.Micromamba}} run -n {{.Env}} mpiexec -n {{.Procs}} python" }
  ]
}`

type hosted bool

func (h hosted) Hosted() bool { return bool(h) }

type fixture struct {
	layout   model.Layout
	rec      *execxtest.Recorder
	registry *extension.Registry
	out      *bytes.Buffer
	pipeline *Pipeline
}

// newFixture wires real components to a recording runner. The storage
// mount is present unless mounted is false. A recorded "git clone"
// materialises the repository with its extension file.
func newFixture(t *testing.T, mounted bool) *fixture {
	t.Helper()
	layout := model.NewLayout(t.TempDir())
	if mounted {
		require.NoError(t, os.MkdirAll(layout.MountPoint, 0o755))
	}

	rec := &execxtest.Recorder{}
	rec.OnRun = func(cmd execx.Command) error {
		if cmd.Name == "git" && len(cmd.Args) > 0 && cmd.Args[0] == "clone" {
			writeRepo(t, layout)
		}
		return nil
	}

	out := &bytes.Buffer{}
	printer := style.NewPrinter(out)

	g := gate.New(layout, hosted(false), rec)
	g.Out = out
	s := repo.NewSynchronizer(testURL, layout.RepoDir, rec)
	s.Out = out

	p := New(layout, g, s, rec, selftest.NewMicromambaLauncher(layout.Micromamba, rec))
	p.Registry = extension.NewRegistry()
	p.Printer = printer

	return &fixture{layout: layout, rec: rec, registry: p.Registry, out: out, pipeline: p}
}

func writeRepo(t *testing.T, layout model.Layout) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(layout.ExtensionFile), 0o755))
	require.NoError(t, os.WriteFile(layout.ExtensionFile, []byte(magicFile), 0o644))
}

// TestNew_DefaultsDiscardProgress runs a pipeline built by New without a
// Printer. Progress lines go nowhere and every step still runs.
func TestNew_DefaultsDiscardProgress(t *testing.T) {
	f := newFixture(t, true)
	p := New(f.layout, f.pipeline.Gate, f.pipeline.Repo, f.rec, f.pipeline.Launcher)
	p.Registry = f.registry

	require.NotPanics(t, func() {
		require.NoError(t, p.Run(context.Background(), nil))
	})
	assert.Len(t, f.rec.Lines(), 3, "clone, install and self-test ran")
	assert.NotContains(t, f.out.String(), "fenicsx ready")
	assert.NotContains(t, f.out.String(), "self-test passed")
}

// TestRun_MissingExtensionUsesBuiltin clones a repository that ships no
// extension file. The built-in magics are registered and the self-test runs.
func TestRun_MissingExtensionUsesBuiltin(t *testing.T) {
	f := newFixture(t, true)
	f.rec.OnRun = func(cmd execx.Command) error {
		if cmd.Name == "git" {
			return os.MkdirAll(f.layout.RepoDir, 0o755)
		}
		return nil
	}

	require.NoError(t, f.pipeline.Run(context.Background(), nil))

	def, ok := f.registry.Lookup("fenicsx-test")
	require.True(t, ok)
	assert.Equal(t, extension.BuiltinSource, def.Source)
	assert.Len(t, f.rec.Lines(), 3)
	assert.Contains(t, f.out.String(), "using built-in magics")
}

func TestRun_FullSuccess(t *testing.T) {
	f := newFixture(t, true)

	require.NoError(t, f.pipeline.Run(context.Background(), []string{"--clean"}))

	lines := f.rec.Lines()
	require.Len(t, lines, 3)
	assert.Equal(t, "git clone "+testURL+" "+f.layout.RepoDir, lines[0])
	assert.Equal(t, "bash "+f.layout.InstallScript+" --clean", lines[1])
	assert.Equal(t, f.layout.Micromamba+" run -n fenicsx mpiexec -n 4 python "+f.layout.TestFile, lines[2],
		"the self-test is the last command")

	cmds := f.rec.Commands()
	assert.Equal(t, f.layout.RepoDir, cmds[1].Dir, "install runs in the repository")
	assert.Equal(t, f.layout.RepoDir, cmds[2].Dir)

	_, ok := f.registry.Lookup("fenicsx")
	assert.True(t, ok, "magic registered")

	out := f.out.String()
	assert.Contains(t, out, "📥 Cloning repository...")
	assert.Contains(t, out, "🎉 fenicsx ready")
	assert.True(t, strings.HasSuffix(out, "🧪 fenicsx self-test passed ✅\n"))
}

func TestRun_NotMountedStopsBeforeAnyCommand(t *testing.T) {
	f := newFixture(t, false)

	err := f.pipeline.Run(context.Background(), nil)

	require.Error(t, err)
	assert.Equal(t, model.ExitStorageNotMounted, model.ExitCodeOf(err))
	assert.Empty(t, f.rec.Commands(), "no clone or install without storage")
	assert.NoDirExists(t, f.layout.RepoDir)
}

func TestRun_ConflictingPathIsUntouched(t *testing.T) {
	f := newFixture(t, true)
	require.NoError(t, os.MkdirAll(f.layout.RepoDir, 0o755))
	stray := filepath.Join(f.layout.RepoDir, "notes.txt")
	require.NoError(t, os.WriteFile(stray, []byte("keep me"), 0o644))

	err := f.pipeline.Run(context.Background(), nil)

	require.Error(t, err)
	assert.Equal(t, model.ExitConflictingState, model.ExitCodeOf(err))
	assert.Empty(t, f.rec.Commands())

	entries, err := os.ReadDir(f.layout.RepoDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	data, err := os.ReadFile(stray)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(data))
}

func TestRun_ValidCloneIsNotRecloned(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	f := newFixture(t, true)
	writeRepo(t, f.layout)
	for _, args := range [][]string{{"init"}, {"remote", "add", "origin", testURL}} {
		out, err := exec.Command("git", append([]string{"-C", f.layout.RepoDir}, args...)...).CombinedOutput()
		require.NoError(t, err, string(out))
	}

	require.NoError(t, f.pipeline.Run(context.Background(), nil))

	assert.Zero(t, f.rec.Count("git clone"))
	assert.Contains(t, f.out.String(), "📦 Repo exists")
	assert.Equal(t, 1, f.rec.Count("bash "+f.layout.InstallScript))
}

func TestRun_InstallFailureStopsPipeline(t *testing.T) {
	f := newFixture(t, true)
	f.rec.FailOn("bash ", nil)

	err := f.pipeline.Run(context.Background(), nil)

	require.Error(t, err)
	assert.Equal(t, model.ExitCommandFailed, model.ExitCodeOf(err))
	assert.Zero(t, f.registry.Len(), "extension not loaded")
	assert.Zero(t, f.rec.Count(f.layout.Micromamba), "self-test not run")
	assert.NotContains(t, f.out.String(), "Loading fenicsx Jupyter magic")
}

func TestRun_BadExtensionStopsBeforeSelfTest(t *testing.T) {
	f := newFixture(t, true)
	f.rec.OnRun = func(cmd execx.Command) error {
		if cmd.Name == "git" {
			require.NoError(t, os.MkdirAll(filepath.Dir(f.layout.ExtensionFile), 0o755))
			require.NoError(t, os.WriteFile(f.layout.ExtensionFile, []byte(`{"version": 2}`), 0o644))
		}
		return nil
	}

	err := f.pipeline.Run(context.Background(), nil)

	require.Error(t, err)
	assert.Equal(t, model.ExitExtensionInvalid, model.ExitCodeOf(err))
	assert.Zero(t, f.rec.Count(f.layout.Micromamba))
}

func TestRun_SelfTestFailure(t *testing.T) {
	f := newFixture(t, true)
	f.rec.FailOn(f.layout.Micromamba, nil)

	err := f.pipeline.Run(context.Background(), nil)

	require.Error(t, err)
	assert.Equal(t, model.ExitCommandFailed, model.ExitCodeOf(err))
	assert.NotContains(t, f.out.String(), "self-test passed")
}

func TestInstallCommand(t *testing.T) {
	p := New(model.NewLayout("/content"), nil, nil, nil, nil)

	cmd := p.InstallCommand([]string{"--clean", "--cpu-only"})

	assert.Equal(t, []string{"bash", "/content/fenicsx-colab/setup/install_fenicsx.sh", "--clean", "--cpu-only"}, cmd.Argv())
	assert.Equal(t, "/content/fenicsx-colab", cmd.Dir)
}
