package cli

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seoultechpse/fenicsx-setup/internal/model"
)

func TestPassThroughArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"no args", nil, nil},
		{"unknown long flag", []string{"--root", "/x", "--clean"}, []string{"--root", "/x", "--", "--clean"}},
		{"inline value", []string{"--root=/x", "--clean"}, []string{"--root=/x", "--", "--clean"}},
		{"value flag", []string{"--procs", "2", "--clean"}, []string{"--procs", "2", "--", "--clean"}},
		{"count shorthand", []string{"-vv", "--clean", "--gpu"}, []string{"-vv", "--", "--clean", "--gpu"}},
		{"bool flag", []string{"--json", "--clean"}, []string{"--json", "--", "--clean"}},
		{"positional", []string{"--root", "/x", "extra"}, []string{"--root", "/x", "--", "extra"}},
		{"unknown shorthand", []string{"-c"}, []string{"--", "-c"}},
		{"separator kept", []string{"--root", "/x", "--", "--clean"}, []string{"--root", "/x", "--", "--clean"}},
		{"known flags only", []string{"--root", "/x", "-v"}, []string{"--root", "/x", "-v"}},
		{"help", []string{"--help"}, []string{"--help"}},
		{"subcommand", []string{"--root", "/x", "doctor"}, []string{"--root", "/x", "doctor"}},
		{"subcommand args", []string{"magic", "run", "say", "--np", "2", "--", "hi"}, []string{"magic", "run", "say", "--np", "2", "--", "hi"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, passThroughArgs(NewRootCommand(), tt.args))
		})
	}
}

// TestRoot_InstallerReceivesUnknownFlags runs the whole bootstrap against a
// local repository and checks the install script sees --clean verbatim.
func TestRoot_InstallerReceivesUnknownFlags(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	if _, err := exec.LookPath("bash"); err != nil {
		t.Skip("bash not installed")
	}
	root := isolate(t)

	src := filepath.Join(t.TempDir(), "fenicsx-colab")
	writeFile(t, filepath.Join(src, "setup", "install_fenicsx.sh"), "printf '%s\\n' \"$@\" > \"$ARGS_OUT\"\n")
	writeFile(t, filepath.Join(src, "magic", "fenicsx_magic.jsonc"), `{"version": 1, "magics": [
  {"name": "fenicsx", "command": "{{.Micromamba}} run -n {{.Env}} python"}
]}`)
	writeFile(t, filepath.Join(src, "tests", "test_fenicsx_basic.py"), "print('ok')\n")
	gitIn(t, src, "init", "-q")
	gitIn(t, src, "add", ".")
	gitIn(t, src, "-c", "user.name=test", "-c", "user.email=test@example.com", "commit", "-q", "-m", "init")

	micromamba := filepath.Join(root, "micromamba", "bin", "micromamba")
	writeFile(t, micromamba, "#!/bin/sh\nexit 0\n")
	require.NoError(t, os.Chmod(micromamba, 0o755))
	require.NoError(t, os.MkdirAll(model.NewLayout(root).MountPoint, 0o755))

	argsOut := filepath.Join(t.TempDir(), "args")
	t.Setenv("ARGS_OUT", argsOut)
	t.Setenv("FENICSX_SETUP_REPO_URL", src)

	out, err := execute(t, "--root", root, "--procs", "1", "--clean", "--prefix", "/opt/fx")
	require.NoError(t, err, out)

	got, err := os.ReadFile(argsOut)
	require.NoError(t, err)
	assert.Equal(t, []string{"--clean", "--prefix", "/opt/fx"}, strings.Fields(string(got)))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func gitIn(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
}
