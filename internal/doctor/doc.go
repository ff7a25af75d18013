// Package doctor reports on the bootstrap preconditions without changing
// anything: storage mount, repository state, required tools and their
// versions, the extension file and, for the docker launcher, the daemon.
package doctor
