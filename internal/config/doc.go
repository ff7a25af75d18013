// Package config loads the bootstrap configuration with viper.
//
// Values come, in increasing priority, from built-in defaults, an optional
// YAML file, FENICSX_SETUP_* environment variables, and command-line flags
// bound by the cli package. The loaded Config resolves to a model.Layout
// of absolute paths that the rest of the bootstrap consumes.
package config
