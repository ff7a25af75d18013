package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/seoultechpse/fenicsx-setup/internal/model"
)

const (
	fileName  = "fenicsx-setup"
	fileType  = "yaml"
	envPrefix = "FENICSX_SETUP"
)

// DefaultMountCommand asks the Colab runtime to mount Google Drive. It is
// rendered with the Layout, so {{.MountTarget}} follows the configured root.
const DefaultMountCommand = `python3 -c "from google.colab import drive; drive.mount('{{.MountTarget}}')"`

// DefaultDockerImage is the image the docker self-test launcher runs in.
const DefaultDockerImage = "dolfinx/dolfinx:stable"

// Hosted-runtime detection modes.
const (
	HostedAuto  = "auto"
	HostedTrue  = "true"
	HostedFalse = "false"
)

// Config is the full bootstrap configuration.
type Config struct {
	Root     string         `mapstructure:"root" yaml:"root" json:"root"`
	Repo     RepoConfig     `mapstructure:"repo" yaml:"repo" json:"repo"`
	Paths    PathsConfig    `mapstructure:"paths" yaml:"paths" json:"paths"`
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage" json:"storage"`
	Runtime  RuntimeConfig  `mapstructure:"runtime" yaml:"runtime" json:"runtime"`
	Env      EnvConfig      `mapstructure:"env" yaml:"env" json:"env"`
	SelfTest SelfTestConfig `mapstructure:"selftest" yaml:"selftest" json:"selftest"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-" yaml:"-" json:"-"`
}

// RepoConfig identifies the remote repository and its local clone.
type RepoConfig struct {
	URL string `mapstructure:"url" yaml:"url" json:"url"`
	// Dir is relative to Root unless absolute. Empty means Root/fenicsx-colab.
	Dir string `mapstructure:"dir" yaml:"dir" json:"dir"`
}

// PathsConfig overrides individual files. Script, extension and test paths
// are relative to the repository; micromamba is relative to Root.
type PathsConfig struct {
	InstallScript string `mapstructure:"install_script" yaml:"install_script" json:"install_script"`
	ExtensionFile string `mapstructure:"extension_file" yaml:"extension_file" json:"extension_file"`
	TestFile      string `mapstructure:"test_file" yaml:"test_file" json:"test_file"`
	Micromamba    string `mapstructure:"micromamba" yaml:"micromamba" json:"micromamba"`
}

// StorageConfig controls the storage-mount precondition.
type StorageConfig struct {
	MountPoint   string `mapstructure:"mount_point" yaml:"mount_point" json:"mount_point"`
	MountTarget  string `mapstructure:"mount_target" yaml:"mount_target" json:"mount_target"`
	AutoMount    bool   `mapstructure:"auto_mount" yaml:"auto_mount" json:"auto_mount"`
	MountCommand string `mapstructure:"mount_command" yaml:"mount_command" json:"mount_command"`
}

// RuntimeConfig controls hosted-notebook detection.
type RuntimeConfig struct {
	// Hosted is "auto" (detect from the environment), "true" or "false".
	Hosted string `mapstructure:"hosted" yaml:"hosted" json:"hosted"`
}

// EnvConfig names the runtime environment created by the install script.
type EnvConfig struct {
	Name string `mapstructure:"name" yaml:"name" json:"name"`
}

// SelfTestConfig controls the post-install smoke test.
type SelfTestConfig struct {
	Procs    int    `mapstructure:"procs" yaml:"procs" json:"procs"`
	Launcher string `mapstructure:"launcher" yaml:"launcher" json:"launcher"`
	Image    string `mapstructure:"image" yaml:"image" json:"image"`
}

// SetDefaults registers every key with its default. Registering all keys
// is also what makes AutomaticEnv visible to Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("root", model.DefaultRoot)
	v.SetDefault("repo.url", model.DefaultRepoURL)
	v.SetDefault("repo.dir", "")
	v.SetDefault("paths.install_script", "")
	v.SetDefault("paths.extension_file", "")
	v.SetDefault("paths.test_file", "")
	v.SetDefault("paths.micromamba", "")
	v.SetDefault("storage.mount_point", "")
	v.SetDefault("storage.mount_target", "")
	v.SetDefault("storage.auto_mount", true)
	v.SetDefault("storage.mount_command", DefaultMountCommand)
	v.SetDefault("runtime.hosted", HostedAuto)
	v.SetDefault("env.name", model.DefaultEnvName)
	v.SetDefault("selftest.procs", model.DefaultTestProcs)
	v.SetDefault("selftest.launcher", string(model.LauncherMicromamba))
	v.SetDefault("selftest.image", DefaultDockerImage)
}

// New returns a viper instance with defaults, environment binding and the
// config search path set up. file, when non-empty, is the only config
// file considered.
func New(file string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		return v
	}
	v.SetConfigName(fileName)
	v.SetConfigType(fileType)
	v.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, fileName))
	}
	return v
}

// Load reads the config file (if any) and unmarshals the merged settings.
// A missing file is not an error unless it was named explicitly.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		// Only a searched-for file may be missing; ConfigFileUsed is
		// non-empty when the caller named one explicitly.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || v.ConfigFileUsed() != "" {
			return nil, model.WrapCLIError(model.ExitConfigInvalid, "failed to read config file", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, model.WrapCLIError(model.ExitConfigInvalid, "failed to decode configuration", err)
	}
	cfg.File = v.ConfigFileUsed()
	return cfg, nil
}

// Layout resolves the configured paths into an absolute model.Layout.
func (c *Config) Layout() model.Layout {
	root := c.Root
	if root == "" {
		root = model.DefaultRoot
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}

	l := model.NewLayout(root)
	if dir := model.ResolveUnder(root, c.Repo.Dir); dir != "" {
		l = l.WithRepoDir(dir)
	}

	override := func(dst *string, base, p string) {
		if v := model.ResolveUnder(base, p); v != "" {
			*dst = v
		}
	}
	override(&l.InstallScript, l.RepoDir, c.Paths.InstallScript)
	override(&l.ExtensionFile, l.RepoDir, c.Paths.ExtensionFile)
	override(&l.TestFile, l.RepoDir, c.Paths.TestFile)
	override(&l.Micromamba, root, c.Paths.Micromamba)
	override(&l.MountPoint, root, c.Storage.MountPoint)
	override(&l.MountTarget, root, c.Storage.MountTarget)

	return l
}

// Launcher returns the parsed self-test launcher.
func (c *Config) Launcher() (model.Launcher, error) {
	return model.ParseLauncher(c.SelfTest.Launcher)
}

// Validate rejects configurations the bootstrap cannot act on. All
// problems are reported together.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Repo.URL) == "" {
		problems = append(problems, "repo.url must not be empty")
	}
	if strings.TrimSpace(c.Env.Name) == "" {
		problems = append(problems, "env.name must not be empty")
	}
	if c.SelfTest.Procs < 1 {
		problems = append(problems, fmt.Sprintf("selftest.procs must be at least 1, got %d", c.SelfTest.Procs))
	}
	launcher, err := c.Launcher()
	if err != nil {
		problems = append(problems, err.Error())
	}
	if launcher == model.LauncherDocker && strings.TrimSpace(c.SelfTest.Image) == "" {
		problems = append(problems, "selftest.image must be set for the docker launcher")
	}
	switch strings.ToLower(c.Runtime.Hosted) {
	case HostedAuto, HostedTrue, HostedFalse:
	default:
		problems = append(problems, fmt.Sprintf("runtime.hosted must be auto, true or false, got %q", c.Runtime.Hosted))
	}
	if c.Storage.AutoMount && strings.TrimSpace(c.Storage.MountCommand) == "" {
		problems = append(problems, "storage.mount_command must be set when storage.auto_mount is enabled")
	}
	if err := c.Layout().Validate(); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return model.WrapCLIError(model.ExitConfigInvalid, "invalid configuration",
			errors.New(strings.Join(problems, "; ")))
	}
	return nil
}
