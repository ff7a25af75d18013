package extension

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefinition_Expand(t *testing.T) {
	vars := Vars{
		Micromamba: "/content/micromamba/bin/micromamba",
		Env:        "fenicsx",
		Procs:      4,
		RepoDir:    "/content/fenicsx-colab",
	}

	t.Run("mpi command keeps process count", func(t *testing.T) {
		d := Definition{
			Name:    "fenicsx",
			Command: "{{.Micromamba}} run -n {{.Env}} mpiexec -n {{.Procs}} python",
			MPI:     true,
		}
		cmd, err := d.Expand(vars, "poisson.py", "--refine")
		require.NoError(t, err)
		assert.Equal(t, []string{
			"/content/micromamba/bin/micromamba", "run", "-n", "fenicsx",
			"mpiexec", "-n", "4", "python", "poisson.py", "--refine",
		}, cmd.Argv())
	})

	t.Run("serial command forces one process", func(t *testing.T) {
		d := Definition{Name: "serial", Command: "mpiexec -n {{.Procs}} python"}
		cmd, err := d.Expand(vars)
		require.NoError(t, err)
		assert.Equal(t, []string{"mpiexec", "-n", "1", "python"}, cmd.Argv())
	})

	t.Run("template error names the magic", func(t *testing.T) {
		d := Definition{Name: "broken", Command: "{{.Nope}}"}
		_, err := d.Expand(vars)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `magic "broken"`)
	})
}

func TestRegistry_Definitions(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(
		Definition{Name: "zeta", Command: "z", Source: "a"},
		Definition{Name: "alpha", Command: "a", Source: "a"},
	))

	defs := reg.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "alpha", defs[0].Name)
	assert.Equal(t, "zeta", defs[1].Name)

	_, ok := reg.Lookup("missing")
	assert.False(t, ok)
}
