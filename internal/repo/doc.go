// Package repo keeps the local working copy of the remote repository.
//
// Cloning goes through the execx.Runner so the command is echoed like
// every other external step. Inspecting an existing path uses
// github.com/Masterminds/vcs, which detects the VCS from the filesystem
// and reads the clone's origin through the git CLI.
//
// The synchronizer never modifies an existing path: a valid clone is used
// as-is (no fetch, no reset) and anything else aborts the bootstrap.
package repo
