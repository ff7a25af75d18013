package model

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Default values for the hosted-notebook layout. The base directory is the
// Colab working directory; every other path hangs off it.
const (
	DefaultRoot      = "/content"
	DefaultRepoURL   = "https://github.com/seoultechpse/fenicsx-colab.git"
	DefaultRepoName  = "fenicsx-colab"
	DefaultEnvName   = "fenicsx"
	DefaultTestProcs = 4
)

// Layout is the fixed filesystem layout consumed and produced by the
// bootstrap. It is resolved once at startup and never mutated afterwards,
// so every step and the doctor command agree on where things live.
// All paths are absolute; Validate rejects anything else because steps
// run commands in different working directories.
type Layout struct {
	// Root is the base directory all default paths are derived from.
	Root string `json:"root" yaml:"root"`

	// MountPoint must exist before installation proceeds. It is the
	// directory the cloud-storage mount exposes (e.g. /content/drive/MyDrive).
	MountPoint string `json:"mountPoint" yaml:"mount_point"`

	// MountTarget is the directory handed to the mount command when the
	// bootstrap attempts to establish the mount itself.
	MountTarget string `json:"mountTarget" yaml:"mount_target"`

	// RepoDir is the local working copy of the remote repository.
	RepoDir string `json:"repoDir" yaml:"repo_dir"`

	// InstallScript is invoked with bash, never modified.
	InstallScript string `json:"installScript" yaml:"install_script"`

	// ExtensionFile holds the shorthand command definitions. When the
	// repository does not ship it, the built-in definitions are used.
	ExtensionFile string `json:"extensionFile" yaml:"extension_file"`

	// TestFile is passed as an argument to the python interpreter inside
	// the runtime environment.
	TestFile string `json:"testFile" yaml:"test_file"`

	// Micromamba is the package-manager binary used to run commands
	// inside the named environment.
	Micromamba string `json:"micromamba" yaml:"micromamba"`
}

// NewLayout derives the default layout from a base directory.
func NewLayout(root string) Layout {
	l := Layout{
		Root:        root,
		MountPoint:  filepath.Join(root, "drive", "MyDrive"),
		MountTarget: filepath.Join(root, "drive"),
		Micromamba:  filepath.Join(root, "micromamba", "bin", "micromamba"),
	}
	return l.WithRepoDir(filepath.Join(root, DefaultRepoName))
}

// WithRepoDir returns a copy of l whose repository and repository-relative
// files (install script, extension file, test file) live under dir.
func (l Layout) WithRepoDir(dir string) Layout {
	l.RepoDir = dir
	l.InstallScript = filepath.Join(dir, "setup", "install_fenicsx.sh")
	l.ExtensionFile = filepath.Join(dir, "magic", "fenicsx_magic.jsonc")
	l.TestFile = filepath.Join(dir, "tests", "test_fenicsx_basic.py")
	return l
}

// ResolveUnder returns p unchanged when it is absolute and joined onto
// base otherwise. An empty p yields an empty result so callers can keep
// their defaults.
func ResolveUnder(base, p string) string {
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

// Validate checks that every path of the layout is set and absolute.
// Relative paths would be resolved against whatever directory the
// process happens to run in, which is never what the caller meant.
func (l Layout) Validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"root", l.Root},
		{"mount point", l.MountPoint},
		{"mount target", l.MountTarget},
		{"repository dir", l.RepoDir},
		{"install script", l.InstallScript},
		{"extension file", l.ExtensionFile},
		{"test file", l.TestFile},
		{"micromamba", l.Micromamba},
	}

	var problems []string
	for _, f := range fields {
		switch {
		case f.value == "":
			problems = append(problems, f.name+" is empty")
		case !filepath.IsAbs(f.value):
			problems = append(problems, fmt.Sprintf("%s %q is not absolute", f.name, f.value))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid layout: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Step identifies one stage of the bootstrap sequence.
type Step string

const (
	StepStorage   Step = "storage"
	StepRepo      Step = "repository"
	StepInstall   Step = "install"
	StepExtension Step = "extension"
	StepSelfTest  Step = "selftest"
)

// Steps lists the bootstrap stages in execution order.
var Steps = []Step{StepStorage, StepRepo, StepInstall, StepExtension, StepSelfTest}

// String returns the string representation of Step.
func (s Step) String() string {
	return string(s)
}

// RepoState classifies what is found at the repository path.
type RepoState string

const (
	// RepoAbsent means nothing exists at the path; a clone is required.
	RepoAbsent RepoState = "absent"

	// RepoValid means the path holds a usable git working copy. The
	// remote is not part of validity: a clone whose origin points
	// elsewhere, or whose remote was renamed, is still reused as-is
	// because re-cloning would discard local work in the notebook.
	RepoValid RepoState = "valid"

	// RepoConflict means the path exists but is not a git working copy.
	// The bootstrap refuses to touch it; the directory may hold files the
	// user placed there and deleting or cloning over it would lose them.
	RepoConflict RepoState = "conflict"
)

// String returns the string representation of RepoState.
func (s RepoState) String() string {
	return string(s)
}

// Launcher names the backend that runs the self-test.
type Launcher string

const (
	LauncherMicromamba Launcher = "micromamba"
	LauncherDocker     Launcher = "docker"
)

// String returns the string representation of Launcher.
func (l Launcher) String() string {
	return string(l)
}

// IsValid checks whether the Launcher value is one of the known backends.
func (l Launcher) IsValid() bool {
	switch l {
	case LauncherMicromamba, LauncherDocker:
		return true
	default:
		return false
	}
}

// ParseLauncher converts a string to a Launcher.
// Returns an error if the string does not match any valid launcher.
func ParseLauncher(s string) (Launcher, error) {
	l := Launcher(strings.ToLower(strings.TrimSpace(s)))
	if !l.IsValid() {
		return "", fmt.Errorf("invalid self-test launcher: %q (valid: micromamba, docker)", s)
	}
	return l, nil
}

// ExitCode defines the CLI exit codes. Each failure class of the
// bootstrap maps to its own code so calling notebooks and scripts can
// tell them apart.
type ExitCode int

const (
	// ExitSuccess indicates every step completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unclassified error.
	ExitGeneralError ExitCode = 1

	// ExitStorageNotMounted indicates the storage mount point is missing.
	ExitStorageNotMounted ExitCode = 2

	// ExitConflictingState indicates the repository path exists but is
	// not a valid clone.
	ExitConflictingState ExitCode = 3

	// ExitCommandFailed indicates an external command exited non-zero
	// or could not be started, including a required tool such as git
	// missing from PATH.
	ExitCommandFailed ExitCode = 4

	// ExitConfigInvalid indicates the configuration could not be loaded
	// or failed validation.
	ExitConfigInvalid ExitCode = 5

	// ExitExtensionInvalid indicates the extension-definition file could
	// not be read, parsed or registered.
	ExitExtensionInvalid ExitCode = 6

	// ExitDockerNotRunning indicates the Docker daemon is not accessible
	// while the docker self-test launcher is selected.
	ExitDockerNotRunning ExitCode = 7
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Hint is optional multi-line guidance printed after the message,
	// e.g. how to mount storage from the notebook.
	Hint string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// WithHint attaches user guidance to the error and returns it.
func (e *CLIError) WithHint(hint string) *CLIError {
	e.Hint = hint
	return e
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}

// ExitCodeOf returns the exit code carried by err. Errors that are not
// (and do not wrap) a CLIError map to ExitGeneralError; nil maps to
// ExitSuccess.
func ExitCodeOf(err error) ExitCode {
	if err == nil {
		return ExitSuccess
	}
	if cliErr, ok := AsCLIError(err); ok {
		return cliErr.Code
	}
	return ExitGeneralError
}

// AsCLIError finds the first CLIError in err's chain.
func AsCLIError(err error) (*CLIError, bool) {
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr, true
	}
	return nil, false
}
