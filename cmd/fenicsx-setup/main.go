// Package main is the entry point for the fenicsx-setup CLI.
//
// Build-time variables (version, commit, date) are injected via ldflags;
// during development they default to "dev", "none" and "unknown".
package main

import (
	"github.com/seoultechpse/fenicsx-setup/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	cli.Execute(cli.NewRootCommand())
}
