// Package cli implements the cobra-based CLI for fenicsx-setup.
//
// The root command runs the bootstrap itself; doctor, magic and config are
// auxiliary subcommands defined in their own files.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/seoultechpse/fenicsx-setup/internal/config"
	"github.com/seoultechpse/fenicsx-setup/internal/logging"
	"github.com/seoultechpse/fenicsx-setup/internal/model"
	"github.com/seoultechpse/fenicsx-setup/internal/style"
)

// Global flag values, bound to persistent flags on the root command.
var (
	configFile string
	jsonOutput bool
	verbosity  int
	logFile    string

	// closeLog releases the log file opened by logging.Setup.
	closeLog = func() error { return nil }
)

// Version, Commit and Date are injected from main via ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// flagKeys maps flag names to the configuration keys they override.
var flagKeys = map[string]string{
	"root":     "root",
	"procs":    "selftest.procs",
	"launcher": "selftest.launcher",
	"env":      "env.name",
}

// NewRootCommand creates the root command with every subcommand attached.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fenicsx-setup [flags] [installer-args...]",
		Short: "Bootstrap a FEniCSx environment in a Colab runtime",
		Long: `fenicsx-setup prepares a hosted notebook runtime for FEniCSx.

It checks that Google Drive is mounted, clones the fenicsx-colab repository
(or verifies an existing clone), runs its install script, loads the notebook
magics and finishes with an MPI self-test. The first failing step stops the
run with a non-zero exit code.

Arguments fenicsx-setup does not recognise, and everything after "--", are
passed to the install script unchanged.

Examples:
  fenicsx-setup
  fenicsx-setup --clean
  fenicsx-setup -- --clean
  fenicsx-setup --root /tmp/colab --launcher docker`,

		Args: cobra.ArbitraryArgs,

		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			closer, err := logging.Setup(logging.Options{Verbosity: verbosity, File: logFile})
			if err != nil {
				return model.WrapCLIError(model.ExitGeneralError, "failed to set up logging", err)
			}
			closeLog = closer
			return nil
		},

		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runBootstrap(cmd, cfg, args)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "Config file (default ./fenicsx-setup.yaml or the user config dir)")
	pf.String("root", model.DefaultRoot, "Base directory of the runtime")
	pf.BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	pf.CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	pf.StringVar(&logFile, "log-file", "", "Also write JSON logs to this file")

	rootCmd.Flags().Int("procs", model.DefaultTestProcs, "MPI process count for the self-test")
	rootCmd.Flags().String("launcher", string(model.LauncherMicromamba), "Self-test launcher: micromamba or docker")
	rootCmd.Flags().String("env", model.DefaultEnvName, "Name of the environment created by the install script")

	rootCmd.AddCommand(NewDoctorCommand())
	rootCmd.AddCommand(NewMagicCommand())
	rootCmd.AddCommand(NewConfigCommand())

	return rootCmd
}

// loadConfig builds the effective configuration for cmd: defaults, config
// file, environment and finally any flags the user set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := config.New(configFile)
	if err := bindFlags(v, cmd); err != nil {
		return nil, err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := logging.Logger("cli")
	logger.Debug().Str("configFile", cfg.File).Msg("Configuration loaded")
	return cfg, nil
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for name, key := range flagKeys {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return model.WrapCLIError(model.ExitConfigInvalid,
				fmt.Sprintf("failed to bind flag --%s", name), err)
		}
	}
	return nil
}

// Execute runs the root command and exits with the code carried by the
// returned error. Diagnostics go to stdout next to the progress lines.
func Execute(rootCmd *cobra.Command) {
	if err := executeArgs(rootCmd, os.Args[1:]); err != nil {
		printError(os.Stdout, err)
		os.Exit(int(model.ExitCodeOf(err)))
	}
}

// errorOutput is the --json form of a failure.
type errorOutput struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    model.ExitCode `json:"code"`
	Message string         `json:"message"`
	Detail  string         `json:"detail,omitempty"`
	Hint    string         `json:"hint,omitempty"`
}

func newErrorBody(err error) errorBody {
	body := errorBody{Code: model.ExitCodeOf(err), Message: err.Error()}
	if cliErr, ok := model.AsCLIError(err); ok {
		body.Message = cliErr.Message
		body.Hint = cliErr.Hint
		if cliErr.Err != nil {
			body.Detail = cliErr.Err.Error()
		}
	}
	return body
}

// printError writes err in the format selected by --json.
func printError(w io.Writer, err error) {
	body := newErrorBody(err)
	if jsonOutput {
		data, _ := json.MarshalIndent(errorOutput{Error: body}, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}

	p := style.NewPrinter(w)
	if body.Detail != "" {
		p.Failure("❌ Error: %s: %s", body.Message, body.Detail)
	} else {
		p.Failure("❌ Error: %s", body.Message)
	}
	if body.Hint != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, body.Hint)
	}
}

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to encode JSON output", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}
