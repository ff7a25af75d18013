// Package execx runs external commands for the bootstrap.
//
// Every piece of real work (cloning, installing, running the MPI self-test)
// is delegated to an external process. The Runner interface is the single
// seam through which those processes are started, which lets tests record
// the exact command sequence without spawning anything.
//
// The process-backed runner echoes each command line before running it
// ("$ git clone ..."), streams the child's output, and turns any non-zero
// exit into a model.CLIError with ExitCommandFailed.
package execx
