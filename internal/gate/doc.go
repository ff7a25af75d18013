// Package gate implements the storage-mount precondition of the bootstrap.
//
// The cloud-storage mount persists downloaded packages across notebook
// sessions, so installation must not start without it. When the process
// runs inside a detectable hosted-notebook runtime the gate makes a single
// attempt to establish the mount; afterwards only the existence of the
// mount point decides. There are no retries.
package gate
