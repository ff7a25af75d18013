package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/seoultechpse/fenicsx-setup/internal/bootstrap"
	"github.com/seoultechpse/fenicsx-setup/internal/config"
	"github.com/seoultechpse/fenicsx-setup/internal/docker"
	"github.com/seoultechpse/fenicsx-setup/internal/execx"
	"github.com/seoultechpse/fenicsx-setup/internal/gate"
	"github.com/seoultechpse/fenicsx-setup/internal/model"
	"github.com/seoultechpse/fenicsx-setup/internal/repo"
	"github.com/seoultechpse/fenicsx-setup/internal/selftest"
	"github.com/seoultechpse/fenicsx-setup/internal/style"
)

// runBootstrap wires the real collaborators and runs the five steps.
// installArgs are forwarded to the install script.
func runBootstrap(cmd *cobra.Command, cfg *config.Config, installArgs []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	layout := cfg.Layout()

	runner := execx.NewProcessRunner()
	runner.Echo = out

	launcher, cleanup, err := newLauncher(ctx, cfg, runner, out)
	if err != nil {
		return err
	}
	defer cleanup()

	p := bootstrap.New(layout, newGate(cfg, layout, runner, out), newSynchronizer(cfg, layout, runner, out), runner, launcher)
	p.Env = cfg.Env.Name
	p.Procs = cfg.SelfTest.Procs
	p.Printer = style.NewPrinter(out)

	return p.Run(ctx, installArgs)
}

func newGate(cfg *config.Config, layout model.Layout, runner execx.Runner, out io.Writer) *gate.Gate {
	g := gate.New(layout, gate.EnvDetector{Mode: cfg.Runtime.Hosted}, runner)
	g.AutoMount = cfg.Storage.AutoMount
	g.MountCommand = cfg.Storage.MountCommand
	g.Out = out
	return g
}

func newSynchronizer(cfg *config.Config, layout model.Layout, runner execx.Runner, out io.Writer) *repo.Synchronizer {
	s := repo.NewSynchronizer(cfg.Repo.URL, layout.RepoDir, runner)
	s.Out = out
	return s
}

// newLauncher returns the configured self-test launcher and a cleanup
// function for any resources it holds. The docker launcher checks the
// daemon up front so an unreachable daemon fails before installation.
func newLauncher(ctx context.Context, cfg *config.Config, runner execx.Runner, out io.Writer) (selftest.Launcher, func(), error) {
	launcher, err := cfg.Launcher()
	if err != nil {
		return nil, nil, model.WrapCLIError(model.ExitConfigInvalid, "invalid self-test launcher", err)
	}

	if launcher == model.LauncherDocker {
		client, err := docker.NewClient()
		if err != nil {
			return nil, nil, err
		}
		if err := client.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		cleanup := func() { _ = client.Close() }
		return selftest.NewDockerLauncher(cfg.SelfTest.Image, client, out), cleanup, nil
	}

	return selftest.NewMicromambaLauncher(cfg.Layout().Micromamba, runner), func() {}, nil
}
