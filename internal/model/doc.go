// Package model defines the domain types and value objects for the
// fenicsx-setup CLI.
//
// This package contains pure data structures with no external dependencies.
// The only state the bootstrap owns is a fixed set of filesystem paths
// (Layout) resolved once at startup; the runtime environment itself is
// created and populated by the external install script.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model
