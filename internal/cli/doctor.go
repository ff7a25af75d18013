package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seoultechpse/fenicsx-setup/internal/docker"
	"github.com/seoultechpse/fenicsx-setup/internal/doctor"
	"github.com/seoultechpse/fenicsx-setup/internal/execx"
	"github.com/seoultechpse/fenicsx-setup/internal/model"
)

// NewDoctorCommand creates the "doctor" command.
func NewDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check bootstrap preconditions without changing anything",
		Long: `Report on everything the bootstrap depends on: the storage mount, the
repository path, git and bash, micromamba, the extension file and, with the
docker launcher, the Docker daemon.

Exits non-zero with the code the bootstrap would fail with when a required
check fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			layout := cfg.Layout()

			runner := execx.NewProcessRunner()
			runner.Echo = nil

			d := doctor.New(layout,
				newGate(cfg, layout, runner, nil),
				newSynchronizer(cfg, layout, runner, nil),
				runner)

			if launcher, _ := cfg.Launcher(); launcher == model.LauncherDocker {
				pinger, closeFn := dockerPinger()
				defer closeFn()
				d.Docker = pinger
			}

			report := d.Run(cmd.Context())
			if jsonOutput {
				if err := writeJSON(out, report); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(out, "fenicsx-setup doctor")
				report.Write(out)
			}
			return report.Err()
		},
	}
}

// pingFunc adapts a client construction error to doctor.Pinger.
type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func dockerPinger() (doctor.Pinger, func()) {
	client, err := docker.NewClient()
	if err != nil {
		return pingFunc(func(context.Context) error { return err }), func() {}
	}
	return client, func() { _ = client.Close() }
}
