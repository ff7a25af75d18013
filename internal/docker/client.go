package docker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/docker/docker/client"

	"github.com/seoultechpse/fenicsx-setup/internal/model"
)

// defaultPingTimeout is how long Ping waits for the daemon. Five seconds
// covers a cold Docker Desktop VM on macOS, which answers much slower than
// a native Linux daemon, while still failing fast on a hosted notebook
// where no daemon exists at all.
const defaultPingTimeout = 5 * time.Second

// Client wraps the Docker Engine SDK client used by the docker self-test
// launcher.
//
// Usage:
//
//	c, err := docker.NewClient()
//	if err != nil { /* handle */ }
//	defer c.Close()
//	if err := c.Ping(ctx); err != nil { /* Docker not running */ }
type Client struct {
	// inner is wrapped rather than embedded so only the calls the launcher
	// needs are exposed.
	inner *client.Client
}

// NewClient creates a Docker client with automatic socket detection.
//
// The host is chosen in this order:
//  1. DOCKER_HOST, used as-is and parsed by the SDK
//  2. /var/run/docker.sock
//  3. $XDG_RUNTIME_DIR/docker.sock (rootless Docker)
//  4. ~/.docker/run/docker.sock on macOS (newer Docker Desktop)
//
// Returns a model.CLIError with ExitDockerNotRunning if no socket is found
// or the client cannot be created.
func NewClient() (*Client, error) {
	if host := os.Getenv("DOCKER_HOST"); host != "" {
		return newClientWithHost(host)
	}

	host, err := detectDockerHost()
	if err != nil {
		return nil, model.WrapCLIError(model.ExitDockerNotRunning, "Docker socket not found", err)
	}
	return newClientWithHost(host)
}

func newClientWithHost(host string) (*Client, error) {
	// API version negotiation keeps the client working against older
	// daemons without pinning a version here.
	c, err := client.NewClientWithOpts(
		client.WithHost(host),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to create Docker client for host %q", host),
			err,
		)
	}
	return &Client{inner: c}, nil
}

// detectDockerHost returns the first existing Unix socket among the
// candidates for this platform. Hosted notebooks run Linux; rootless
// Docker and Docker Desktop sockets are covered as well.
//
// Only file existence is checked here. Stat is instant and needs no
// daemon, so a missing Docker install is reported without a timeout;
// whether something actually listens on the socket is left to Ping.
func detectDockerHost() (string, error) {
	candidates := []string{"/var/run/docker.sock"}

	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		candidates = append(candidates, filepath.Join(dir, "docker.sock"))
	}
	// Docker Desktop normally links /var/run/docker.sock, but newer
	// versions may only create the socket under the user's home.
	if runtime.GOOS == "darwin" {
		if home, err := os.UserHomeDir(); err == nil {
			candidates = append(candidates, filepath.Join(home, ".docker", "run", "docker.sock"))
		}
	}
	return detectUnixSocket(candidates)
}

// detectUnixSocket returns the Docker host URI for the first path that
// exists. Existence does not prove a daemon listens; Ping does that.
func detectUnixSocket(paths []string) (string, error) {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return "unix://" + path, nil
		}
	}
	return "", fmt.Errorf("Docker socket not found at any of: %v (is Docker running?)", paths)
}

// Ping verifies that the Docker daemon is reachable. The docker launcher
// calls it before installation starts so an unreachable daemon costs
// seconds rather than a full install run.
func (c *Client) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	if _, err := c.inner.Ping(pingCtx); err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			"Docker daemon is not responding (is Docker running?)",
			err,
		)
	}
	return nil
}

// Close releases the client's resources. Safe to call multiple times.
func (c *Client) Close() error {
	if c.inner != nil {
		return c.inner.Close()
	}
	return nil
}
