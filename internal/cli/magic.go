package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/seoultechpse/fenicsx-setup/internal/config"
	"github.com/seoultechpse/fenicsx-setup/internal/execx"
	"github.com/seoultechpse/fenicsx-setup/internal/extension"
	"github.com/seoultechpse/fenicsx-setup/internal/model"
)

// NewMagicCommand creates the "magic" command group.
func NewMagicCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "magic",
		Short: "List or run the shorthands from the extension file",
	}
	cmd.AddCommand(newMagicListCommand())
	cmd.AddCommand(newMagicRunCommand())
	return cmd
}

// loadMagics reads the configured extension file into the process-wide
// registry, falling back to the built-in shorthands when it is missing.
func loadMagics(cfg *config.Config) error {
	_, _, err := extension.LoadOrBuiltin(cfg.Layout().ExtensionFile, extension.Default)
	return err
}

// magicEntry is the --json form of a definition.
type magicEntry struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MPI         bool   `json:"mpi"`
	Command     string `json:"command"`
}

func newMagicListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered shorthands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := loadMagics(cfg); err != nil {
				return err
			}

			defs := extension.Default.Definitions()
			out := cmd.OutOrStdout()
			if jsonOutput {
				entries := make([]magicEntry, 0, len(defs))
				for _, d := range defs {
					entries = append(entries, magicEntry{Name: d.Name, Description: d.Description, MPI: d.MPI, Command: d.Command})
				}
				return writeJSON(out, entries)
			}

			fmt.Fprintln(out, magicTable(defs))
			return nil
		},
	}
}

func newMagicRunCommand() *cobra.Command {
	var procs int

	cmd := &cobra.Command{
		Use:   "run <name> [-- args...]",
		Short: "Run a registered shorthand",
		Long: `Run a shorthand from the extension file. Extra arguments are appended
to the expanded command line.

Examples:
  fenicsx-setup magic run fenicsx -- poisson.py
  fenicsx-setup magic run fenicsx --np 2 -- poisson.py`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := loadMagics(cfg); err != nil {
				return err
			}

			def, ok := extension.Default.Lookup(args[0])
			if !ok {
				return model.NewCLIError(model.ExitGeneralError,
					fmt.Sprintf("unknown magic %q", args[0])).
					WithHint("List the available shorthands with: fenicsx-setup magic list")
			}

			n := cfg.SelfTest.Procs
			if cmd.Flags().Changed("np") {
				n = procs
			}
			c, err := def.Expand(magicVars(cfg, n), args[1:]...)
			if err != nil {
				return model.WrapCLIError(model.ExitExtensionInvalid, "failed to expand magic", err)
			}

			runner := execx.NewProcessRunner()
			runner.Echo = cmd.OutOrStdout()
			return runner.Run(cmd.Context(), c)
		},
	}
	cmd.Flags().IntVar(&procs, "np", model.DefaultTestProcs, "MPI process count for MPI shorthands")
	return cmd
}

// magicVars builds the template variables for cfg with n processes.
func magicVars(cfg *config.Config, n int) extension.Vars {
	layout := cfg.Layout()
	return extension.Vars{
		Micromamba: layout.Micromamba,
		Env:        cfg.Env.Name,
		Procs:      n,
		RepoDir:    layout.RepoDir,
	}
}

// magicTable renders defs as a bordered table.
func magicTable(defs []extension.Definition) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("NAME", "MPI", "DESCRIPTION")
	for _, d := range defs {
		mpi := "-"
		if d.MPI {
			mpi = "yes"
		}
		t.Row(d.Name, mpi, d.Description)
	}
	return t.String()
}
