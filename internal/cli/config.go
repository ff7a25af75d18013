package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/seoultechpse/fenicsx-setup/internal/config"
	"github.com/seoultechpse/fenicsx-setup/internal/model"
)

// NewConfigCommand creates the "config" command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the merged configuration and resolved paths as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			view := effectiveConfig{Config: *cfg, Layout: cfg.Layout(), File: cfg.File}
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), view)
			}
			data, err := marshalYAML(view)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	})
	return cmd
}

// effectiveConfig is what "config show" prints: the settings as loaded plus
// the absolute paths they resolve to.
type effectiveConfig struct {
	config.Config `yaml:",inline"`

	Layout model.Layout `yaml:"layout" json:"layout"`
	File   string       `yaml:"config_file,omitempty" json:"configFile,omitempty"`
}

func marshalYAML(v any) ([]byte, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, "failed to encode configuration", err)
	}
	return data, nil
}
