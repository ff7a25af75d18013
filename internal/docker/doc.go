// Package docker runs the installation self-test inside a container when
// the docker launcher is selected.
//
// This package handles:
//   - Docker client initialization with automatic socket detection
//   - Labels that mark containers created by fenicsx-setup, so containers
//     left behind by an interrupted run can be found and removed
//   - Running one container to completion: pull the image if missing,
//     bind-mount the repository, stream logs, report the exit code
//
// The package uses github.com/docker/docker/client as the underlying
// Docker SDK, with API version negotiation enabled.
package docker
