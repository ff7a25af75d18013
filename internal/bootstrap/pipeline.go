// Package bootstrap sequences the five setup steps: storage check,
// repository sync, environment install, extension load and self-test.
//
// Every step is a terminal gate. The first failure is returned unchanged
// and no later step runs.
package bootstrap

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	"github.com/seoultechpse/fenicsx-setup/internal/execx"
	"github.com/seoultechpse/fenicsx-setup/internal/extension"
	"github.com/seoultechpse/fenicsx-setup/internal/logging"
	"github.com/seoultechpse/fenicsx-setup/internal/model"
	"github.com/seoultechpse/fenicsx-setup/internal/selftest"
	"github.com/seoultechpse/fenicsx-setup/internal/style"
)

// StorageGate is satisfied by *gate.Gate.
type StorageGate interface {
	Check(ctx context.Context) error
}

// RepoSyncer is satisfied by *repo.Synchronizer.
type RepoSyncer interface {
	Sync(ctx context.Context) error
}

// Pipeline holds the collaborators of one bootstrap run.
type Pipeline struct {
	Layout   model.Layout
	Gate     StorageGate
	Repo     RepoSyncer
	Runner   execx.Runner
	Registry *extension.Registry
	Launcher selftest.Launcher

	// Env is the runtime environment name passed to the self-test.
	Env   string
	Procs int

	Printer *style.Printer

	log zerolog.Logger
}

// New creates a Pipeline. Registry defaults to extension.Default and
// progress lines are discarded until Printer is set.
func New(layout model.Layout, g StorageGate, r RepoSyncer, runner execx.Runner, launcher selftest.Launcher) *Pipeline {
	return &Pipeline{
		Layout:   layout,
		Gate:     g,
		Repo:     r,
		Runner:   runner,
		Registry: extension.Default,
		Launcher: launcher,
		Env:      model.DefaultEnvName,
		Procs:    model.DefaultTestProcs,
		Printer:  style.NewPrinter(io.Discard),
		log:      logging.Logger("bootstrap"),
	}
}

// Run executes every step in order. installArgs are forwarded verbatim to
// the install script.
func (p *Pipeline) Run(ctx context.Context, installArgs []string) error {
	steps := map[model.Step]func(context.Context) error{
		model.StepStorage:   p.Gate.Check,
		model.StepRepo:      p.Repo.Sync,
		model.StepInstall:   func(ctx context.Context) error { return p.install(ctx, installArgs) },
		model.StepExtension: func(context.Context) error { return p.loadExtension() },
		model.StepSelfTest:  p.selfTest,
	}

	for _, step := range model.Steps {
		done := logging.LogOperationStart(p.log, step.String())
		err := steps[step](ctx)
		done()
		if err != nil {
			p.log.Debug().Err(err).Str("step", step.String()).Msg("Step failed")
			return err
		}
	}
	return nil
}

// InstallCommand is the install-script invocation run in the repository.
func (p *Pipeline) InstallCommand(args []string) execx.Command {
	return execx.NewCommand("bash", append([]string{p.Layout.InstallScript}, args...)...).
		InDir(p.Layout.RepoDir)
}

func (p *Pipeline) install(ctx context.Context, args []string) error {
	p.Printer.Step("🔧 Installing environment...")
	return p.Runner.Run(ctx, p.InstallCommand(args))
}

func (p *Pipeline) loadExtension() error {
	p.Printer.Step("✨ Loading fenicsx Jupyter magic...")
	reg := p.Registry
	if reg == nil {
		reg = extension.Default
	}
	defs, builtin, err := extension.LoadOrBuiltin(p.Layout.ExtensionFile, reg)
	if err != nil {
		return err
	}
	if builtin {
		p.log.Warn().Str("file", p.Layout.ExtensionFile).Msg("Extension file missing, using built-in magics")
		p.Printer.Warning("⚠️ %s not found, using built-in magics", p.Layout.ExtensionFile)
	}
	p.log.Info().Int("count", len(defs)).Bool("builtin", builtin).Str("file", p.Layout.ExtensionFile).Msg("Registered magics")
	p.Printer.Success("🎉 fenicsx ready")
	return nil
}

func (p *Pipeline) selfTest(ctx context.Context) error {
	p.Printer.Step("🧪 Running fenicsx self-test...")
	spec := selftest.Spec{
		RepoDir:  p.Layout.RepoDir,
		TestFile: p.Layout.TestFile,
		Env:      p.Env,
		Procs:    p.Procs,
	}
	if err := p.Launcher.Run(ctx, spec); err != nil {
		return err
	}
	p.Printer.Success("🧪 fenicsx self-test passed ✅")
	return nil
}
