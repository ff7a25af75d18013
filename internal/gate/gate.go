package gate

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/seoultechpse/fenicsx-setup/internal/execx"
	"github.com/seoultechpse/fenicsx-setup/internal/logging"
	"github.com/seoultechpse/fenicsx-setup/internal/model"
)

// Gate checks that the storage mount point exists.
type Gate struct {
	Layout   model.Layout
	Detector Detector
	Runner   execx.Runner

	// AutoMount enables the single mount attempt in hosted runtimes.
	AutoMount bool

	// MountCommand is a command-line template rendered with Layout.
	MountCommand string

	// Out receives progress lines. Nil discards them.
	Out io.Writer

	// Exists reports whether a path exists. Defaults to os.Stat.
	Exists func(path string) bool

	log zerolog.Logger
}

// New creates a Gate with the process defaults.
func New(layout model.Layout, detector Detector, runner execx.Runner) *Gate {
	return &Gate{
		Layout:   layout,
		Detector: detector,
		Runner:   runner,
		log:      logging.Logger("gate"),
	}
}

// Mounted reports whether the mount point exists, without side effects.
func (g *Gate) Mounted() bool {
	return g.exists(g.Layout.MountPoint)
}

// Check succeeds only if the mount point exists, possibly after one mount
// attempt. Otherwise it returns an ExitStorageNotMounted error whose hint
// tells the user how to mount the storage by hand.
func (g *Gate) Check(ctx context.Context) error {
	if g.Mounted() {
		g.log.Debug().Str("mountPoint", g.Layout.MountPoint).Msg("Storage mounted")
		return nil
	}

	if g.AutoMount && g.Detector != nil && g.Detector.Hosted() {
		g.printf("🔌 Storage not mounted, trying to mount %s...\n", g.Layout.MountTarget)
		if err := g.mount(ctx); err != nil {
			// The existence re-check below decides the outcome.
			g.log.Warn().Err(err).Msg("Mount attempt failed")
		}
		if g.Mounted() {
			return nil
		}
	}

	return model.NewCLIError(
		model.ExitStorageNotMounted,
		fmt.Sprintf("storage not mounted at %s", g.Layout.MountPoint),
	).WithHint(g.hint())
}

func (g *Gate) mount(ctx context.Context) error {
	if g.Runner == nil {
		return fmt.Errorf("no command runner configured")
	}
	cmd, err := execx.ParseCommandLine(g.MountCommand, g.Layout)
	if err != nil {
		return err
	}
	return g.Runner.Run(ctx, cmd)
}

func (g *Gate) hint() string {
	return fmt.Sprintf("Run first:\n  from google.colab import drive\n  drive.mount('%s')", g.Layout.MountTarget)
}

func (g *Gate) exists(path string) bool {
	if g.Exists != nil {
		return g.Exists(path)
	}
	_, err := os.Stat(path)
	return err == nil
}

func (g *Gate) printf(format string, args ...any) {
	if g.Out != nil {
		fmt.Fprintf(g.Out, format, args...)
	}
}
