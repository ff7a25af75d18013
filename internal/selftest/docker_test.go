package selftest

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seoultechpse/fenicsx-setup/internal/docker"
	"github.com/seoultechpse/fenicsx-setup/internal/model"
)

type fakeContainers struct {
	stale    int
	staleErr error
	exitCode int64
	runErr   error
	calls    []string
	lastOpts docker.RunOptions
}

func (f *fakeContainers) RemoveStale(context.Context) (int, error) {
	f.calls = append(f.calls, "remove-stale")
	return f.stale, f.staleErr
}

func (f *fakeContainers) RunContainer(_ context.Context, opts docker.RunOptions) (int64, error) {
	f.calls = append(f.calls, "run")
	f.lastOpts = opts
	return f.exitCode, f.runErr
}

func fixedNow() time.Time {
	return time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
}

func TestDockerLauncher_Options(t *testing.T) {
	l := NewDockerLauncher("dolfinx/dolfinx:stable", &fakeContainers{}, nil)
	l.Now = fixedNow

	opts, err := l.Options(testSpec())
	require.NoError(t, err)

	assert.Equal(t, "dolfinx/dolfinx:stable", opts.Image)
	assert.Equal(t, []string{"mpiexec", "-n", "4", "python3", "tests/test_fenicsx_basic.py"}, opts.Cmd)
	assert.Equal(t, "/content/fenicsx-colab", opts.HostDir)
	assert.Equal(t, ContainerMountPath, opts.MountPath)
	assert.True(t, docker.IsManaged(opts.Labels))
	assert.Equal(t, docker.PurposeSelfTest, opts.Labels[docker.LabelPurpose])
	assert.Equal(t, fixedNow(), docker.CreatedAt(opts.Labels))
}

func TestDockerLauncher_TestOutsideRepo(t *testing.T) {
	spec := testSpec()
	spec.TestFile = "/content/other/test.py"
	f := &fakeContainers{}

	err := NewDockerLauncher("img", f, nil).Run(context.Background(), spec)

	require.Error(t, err)
	assert.Equal(t, model.ExitConfigInvalid, model.ExitCodeOf(err))
	assert.Empty(t, f.calls, "nothing may run for an unmountable test file")
}

func TestDockerLauncher_Run(t *testing.T) {
	var out bytes.Buffer
	f := &fakeContainers{stale: 2}
	l := NewDockerLauncher("dolfinx/dolfinx:stable", f, &out)

	require.NoError(t, l.Run(context.Background(), testSpec()))

	assert.Equal(t, []string{"remove-stale", "run"}, f.calls)
	assert.Contains(t, out.String(),
		"$ docker run --rm -v /content/fenicsx-colab:/work -w /work dolfinx/dolfinx:stable mpiexec -n 4 python3 tests/test_fenicsx_basic.py")
	assert.Equal(t, &out, f.lastOpts.Stdout)
}

func TestDockerLauncher_NonZeroExit(t *testing.T) {
	f := &fakeContainers{exitCode: 137}

	err := NewDockerLauncher("img", f, nil).Run(context.Background(), testSpec())

	require.Error(t, err)
	assert.Equal(t, model.ExitCommandFailed, model.ExitCodeOf(err))
	assert.Contains(t, err.Error(), "status 137")
}

func TestDockerLauncher_ErrorsPropagate(t *testing.T) {
	daemonDown := model.NewCLIError(model.ExitDockerNotRunning, "daemon down")

	t.Run("remove stale", func(t *testing.T) {
		f := &fakeContainers{staleErr: daemonDown}
		err := NewDockerLauncher("img", f, nil).Run(context.Background(), testSpec())
		assert.True(t, errors.Is(err, daemonDown))
		assert.Equal(t, []string{"remove-stale"}, f.calls)
	})

	t.Run("run", func(t *testing.T) {
		f := &fakeContainers{runErr: daemonDown}
		err := NewDockerLauncher("img", f, nil).Run(context.Background(), testSpec())
		assert.Equal(t, model.ExitDockerNotRunning, model.ExitCodeOf(err))
	})
}
