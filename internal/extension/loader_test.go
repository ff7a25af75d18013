package extension

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seoultechpse/fenicsx-setup/internal/model"
)

const validFile = `{
  // shorthands registered after install
  "version": 1,
  "magics": [
    {
      "name": "fenicsx",
      "description": "Run a script in the fenicsx environment under MPI",
      "command": "{{.Micromamba}} run -n {{.Env}} mpiexec -n {{.Procs}} python",
      "mpi": true,
    },
    /* serial helper */
    { "name": "fenicsx-info", "command": "{{.Micromamba}} run -n {{.Env}} python -c \"import dolfinx; print(dolfinx.__version__)\"" }
  ]
}`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fenicsx_magic.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParse_Valid(t *testing.T) {
	f, err := Parse([]byte(validFile), "magic.jsonc")
	require.NoError(t, err)

	require.Len(t, f.Magics, 2)
	assert.Equal(t, 1, f.Version)
	assert.Equal(t, "fenicsx", f.Magics[0].Name)
	assert.True(t, f.Magics[0].MPI)
	assert.False(t, f.Magics[1].MPI)
	assert.Equal(t, "magic.jsonc", f.Magics[1].Source)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"not json", `{"version": 1, "magics": [`, "invalid JSON"},
		{"wrong version", `{"version": 2, "magics": []}`, "/version"},
		{"missing command", `{"version": 1, "magics": [{"name": "x"}]}`, "/magics/0"},
		{"bad name", `{"version": 1, "magics": [{"name": "Bad Name", "command": "true"}]}`, "/magics/0/name"},
		{"unknown field", `{"version": 1, "magics": [], "extra": true}`, "extra"},
		{"duplicate", `{"version": 1, "magics": [{"name": "a", "command": "x"}, {"name": "a", "command": "y"}]}`, `"a" is defined twice`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content), "magic.jsonc")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// TestLoad_RegistersIntoRegistry checks that loaded definitions become
// visible through the registry passed in.
func TestLoad_RegistersIntoRegistry(t *testing.T) {
	path := writeFile(t, validFile)
	reg := NewRegistry()

	defs, err := Load(path, reg)
	require.NoError(t, err)
	assert.Len(t, defs, 2)
	assert.Equal(t, 2, reg.Len())

	d, ok := reg.Lookup("fenicsx")
	require.True(t, ok)
	assert.Equal(t, path, d.Source)

	// Loading the same file again is harmless.
	_, err = Load(path, reg)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.jsonc"), NewRegistry())
		require.Error(t, err)
		assert.Equal(t, model.ExitExtensionInvalid, model.ExitCodeOf(err))
	})

	t.Run("invalid content", func(t *testing.T) {
		reg := NewRegistry()
		_, err := Load(writeFile(t, `{"version": 1}`), reg)
		require.Error(t, err)
		assert.Equal(t, model.ExitExtensionInvalid, model.ExitCodeOf(err))
		assert.Equal(t, 0, reg.Len())
	})

	t.Run("clash with another file", func(t *testing.T) {
		reg := NewRegistry()
		_, err := Load(writeFile(t, validFile), reg)
		require.NoError(t, err)

		_, err = Load(writeFile(t, `{"version": 1, "magics": [{"name": "fenicsx", "command": "true"}]}`), reg)
		require.Error(t, err)
		assert.Equal(t, model.ExitExtensionInvalid, model.ExitCodeOf(err))
		assert.Contains(t, err.Error(), "already registered")
	})
}

func TestBuiltin(t *testing.T) {
	f, err := Builtin()
	require.NoError(t, err)
	require.Len(t, f.Magics, 3)

	reg := NewRegistry()
	require.NoError(t, reg.Register(f.Magics...))
	def, ok := reg.Lookup("fenicsx-test")
	require.True(t, ok)
	assert.Equal(t, BuiltinSource, def.Source)
	cmd, err := def.Expand(Vars{Micromamba: "/content/micromamba/bin/micromamba", Env: "fenicsx", Procs: 2, RepoDir: "/content/fenicsx-colab"})
	require.NoError(t, err)
	assert.Equal(t,
		"/content/micromamba/bin/micromamba run -n fenicsx mpiexec -n 2 python /content/fenicsx-colab/tests/test_fenicsx_basic.py",
		cmd.String())
}

func TestLoadOrBuiltin(t *testing.T) {
	t.Run("missing file uses built-in", func(t *testing.T) {
		reg := NewRegistry()
		defs, builtin, err := LoadOrBuiltin(filepath.Join(t.TempDir(), "magic", "fenicsx_magic.jsonc"), reg)
		require.NoError(t, err)
		assert.True(t, builtin)
		assert.Len(t, defs, 3)
		_, ok := reg.Lookup("fenicsx")
		assert.True(t, ok)
	})

	t.Run("present file wins", func(t *testing.T) {
		reg := NewRegistry()
		defs, builtin, err := LoadOrBuiltin(writeFile(t, validFile), reg)
		require.NoError(t, err)
		assert.False(t, builtin)
		assert.Len(t, defs, 2)
		_, ok := reg.Lookup("fenicsx-test")
		assert.False(t, ok, "built-in not mixed in")
	})

	t.Run("invalid file is not replaced", func(t *testing.T) {
		_, builtin, err := LoadOrBuiltin(writeFile(t, `{"version": 2}`), NewRegistry())
		require.Error(t, err)
		assert.False(t, builtin)
		assert.Equal(t, model.ExitExtensionInvalid, model.ExitCodeOf(err))
	})
}
