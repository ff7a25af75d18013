package docker

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/seoultechpse/fenicsx-setup/internal/model"
)

// RunOptions describes a container run to completion.
type RunOptions struct {
	Image string

	// Cmd is the command executed in the container.
	Cmd []string

	// HostDir is bind-mounted at MountPath, which is also the working
	// directory of Cmd.
	HostDir   string
	MountPath string

	Labels map[string]string

	// Stdout and Stderr receive the container's demultiplexed output.
	// Nil means os.Stdout and os.Stderr.
	Stdout io.Writer
	Stderr io.Writer
}

// containerConfig translates RunOptions into the SDK's create arguments.
func containerConfig(opts RunOptions) (*container.Config, *container.HostConfig) {
	cfg := &container.Config{
		Image:      opts.Image,
		Cmd:        opts.Cmd,
		WorkingDir: opts.MountPath,
		Labels:     opts.Labels,
	}
	host := &container.HostConfig{
		Mounts: []mount.Mount{{
			Type:   mount.TypeBind,
			Source: opts.HostDir,
			Target: opts.MountPath,
		}},
		// Open MPI and MPICH exchange data between ranks on one host
		// through /dev/shm. Docker's 64MB default makes the self-test
		// fail with bus errors once more than a couple of ranks run, so
		// the container gets 512MB.
		ShmSize: 512 << 20,
	}
	return cfg, host
}

// RunContainer creates and starts a container, streams its logs until it
// stops, removes it, and returns its exit code. A non-nil error means the
// container could not be run at all; a non-zero exit is reported through
// the returned code.
func (c *Client) RunContainer(ctx context.Context, opts RunOptions) (int64, error) {
	if err := c.ensureImage(ctx, opts.Image, opts.Stderr); err != nil {
		return 0, err
	}

	cfg, hostCfg := containerConfig(opts)
	created, err := c.inner.ContainerCreate(ctx, cfg, hostCfg, nil, nil, "")
	if err != nil {
		return 0, model.WrapCLIError(model.ExitCommandFailed,
			fmt.Sprintf("failed to create container from %s", opts.Image), err)
	}
	defer func() {
		// Self-test containers are never reused, so they are removed as
		// soon as the run ends. ctx may already be cancelled (Ctrl-C in
		// the notebook), hence a fresh context for the removal itself.
		_ = c.inner.ContainerRemove(context.Background(), created.ID, container.RemoveOptions{Force: true})
	}()

	// Register the wait before starting. A self-test that fails on import
	// can exit before ContainerWait would be called after Start, and
	// WaitConditionNextExit would then block on an exit that already
	// happened.
	waitCh, errCh := c.inner.ContainerWait(ctx, created.ID, container.WaitConditionNextExit)

	if err := c.inner.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return 0, model.WrapCLIError(model.ExitCommandFailed,
			fmt.Sprintf("failed to start container %s", shortID(created.ID)), err)
	}

	logs, err := c.inner.ContainerLogs(ctx, created.ID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
	})
	if err != nil {
		return 0, model.WrapCLIError(model.ExitCommandFailed, "failed to attach to container logs", err)
	}
	// Without a TTY the log stream is multiplexed; StdCopy splits it back
	// into stdout and stderr.
	_, copyErr := stdcopy.StdCopy(orDefault(opts.Stdout, os.Stdout), orDefault(opts.Stderr, os.Stderr), logs)
	logs.Close()
	if copyErr != nil && ctx.Err() == nil {
		return 0, model.WrapCLIError(model.ExitCommandFailed, "failed to read container logs", copyErr)
	}

	select {
	case res := <-waitCh:
		if res.Error != nil && res.Error.Message != "" {
			return res.StatusCode, model.NewCLIError(model.ExitCommandFailed,
				"container wait failed: "+res.Error.Message)
		}
		return res.StatusCode, nil
	case err := <-errCh:
		return 0, model.WrapCLIError(model.ExitCommandFailed, "container wait failed", err)
	}
}

// ensureImage pulls ref unless it is already present locally.
func (c *Client) ensureImage(ctx context.Context, ref string, progress io.Writer) error {
	_, err := c.inner.ImageInspect(ctx, ref)
	if err == nil {
		return nil
	}
	if !client.IsErrNotFound(err) {
		return model.WrapCLIError(model.ExitDockerNotRunning,
			fmt.Sprintf("failed to inspect image %s", ref), err)
	}

	fmt.Fprintf(orDefault(progress, os.Stderr), "Pulling image %s...\n", ref)
	rc, err := c.inner.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return model.WrapCLIError(model.ExitCommandFailed,
			fmt.Sprintf("failed to pull image %s", ref), err)
	}
	defer rc.Close()

	// The pull only completes once the progress stream is drained.
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return model.WrapCLIError(model.ExitCommandFailed,
			fmt.Sprintf("failed to pull image %s", ref), err)
	}
	return nil
}

// ListManaged returns every container (running or not) labelled as
// created by fenicsx-setup.
func (c *Client) ListManaged(ctx context.Context) ([]ContainerInfo, error) {
	summaries, err := c.inner.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", LabelManagedBy+"="+ManagedByValue)),
	})
	if err != nil {
		return nil, model.WrapCLIError(model.ExitDockerNotRunning, "failed to list Docker containers", err)
	}

	result := make([]ContainerInfo, 0, len(summaries))
	for _, s := range summaries {
		result = append(result, summaryToInfo(s))
	}
	return result, nil
}

// RemoveStale removes managed containers left behind by earlier runs and
// returns how many were removed.
//
// RunContainer removes its own container, so leftovers only exist when a
// previous process was killed before its deferred cleanup ran. They are
// found through labels alone; no state file records what was started.
func (c *Client) RemoveStale(ctx context.Context) (int, error) {
	containers, err := c.ListManaged(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, ci := range containers {
		if !ci.Stale() {
			continue
		}
		if err := c.inner.ContainerRemove(ctx, ci.ID, container.RemoveOptions{Force: true}); err != nil {
			return removed, model.WrapCLIError(model.ExitDockerNotRunning,
				fmt.Sprintf("failed to remove stale container %s", shortID(ci.ID)), err)
		}
		removed++
	}
	return removed, nil
}

// summaryToInfo maps the SDK's list entry onto ContainerInfo. Docker
// reports names with a leading "/", which is stripped.
func summaryToInfo(s container.Summary) ContainerInfo {
	name := ""
	if len(s.Names) > 0 {
		name = strings.TrimPrefix(s.Names[0], "/")
	}
	return ContainerInfo{
		ID:      s.ID,
		Name:    name,
		Image:   s.Image,
		State:   string(s.State),
		Labels:  s.Labels,
		Created: time.Unix(s.Created, 0).UTC(),
	}
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func orDefault(w, def io.Writer) io.Writer {
	if w == nil {
		return def
	}
	return w
}
