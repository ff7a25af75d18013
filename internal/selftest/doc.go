// Package selftest runs the post-install smoke test.
//
// The test is an opaque script executed under the MPI launcher inside the
// installed environment. Two backends exist: MicromambaLauncher runs it in
// the environment created by the install script, and DockerLauncher runs
// it in a prebuilt container image with the repository bind-mounted.
// Either way the only success criterion is a zero exit status.
package selftest
