package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// executeArgs runs rootCmd with args after routing installer arguments.
func executeArgs(rootCmd *cobra.Command, args []string) error {
	rootCmd.SetArgs(passThroughArgs(rootCmd, args))
	err := rootCmd.Execute()
	_ = closeLog()
	return err
}

// passThroughArgs inserts "--" before the first argument the root command
// does not know, so "fenicsx-setup --clean" forwards --clean to the install
// script the same way "fenicsx-setup -- --clean" does. Subcommand
// invocations and argument lists that already contain "--" are returned
// unchanged.
func passThroughArgs(root *cobra.Command, args []string) []string {
	if cmd, _, err := root.Find(args); err != nil || cmd != root {
		return args
	}

	// help and version are only registered when the command executes.
	root.InitDefaultHelpFlag()
	root.InitDefaultVersionFlag()

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--":
			return args
		case strings.HasPrefix(arg, "--"):
			name, _, hasValue := strings.Cut(arg[2:], "=")
			f := lookupFlag(root, name)
			if f == nil {
				return splitAt(args, i)
			}
			if !hasValue && f.NoOptDefVal == "" {
				i++
			}
		case strings.HasPrefix(arg, "-") && len(arg) > 1:
			skip, ok := shorthandGroup(root, arg[1:])
			if !ok {
				return splitAt(args, i)
			}
			if skip {
				i++
			}
		default:
			return splitAt(args, i)
		}
	}
	return args
}

// shorthandGroup checks a group such as "vv" or "v". It reports whether
// the next argument is the value of the last flag, and whether every
// letter names a known flag.
func shorthandGroup(root *cobra.Command, group string) (skipNext, ok bool) {
	for j := 0; j < len(group); j++ {
		f := lookupShorthand(root, group[j:j+1])
		if f == nil {
			return false, false
		}
		if f.NoOptDefVal == "" {
			// The rest of the group, or the next argument, is the value.
			return j == len(group)-1, true
		}
	}
	return false, true
}

func lookupFlag(root *cobra.Command, name string) *pflag.Flag {
	if f := root.Flags().Lookup(name); f != nil {
		return f
	}
	return root.PersistentFlags().Lookup(name)
}

func lookupShorthand(root *cobra.Command, name string) *pflag.Flag {
	if f := root.Flags().ShorthandLookup(name); f != nil {
		return f
	}
	return root.PersistentFlags().ShorthandLookup(name)
}

func splitAt(args []string, i int) []string {
	out := make([]string, 0, len(args)+1)
	out = append(out, args[:i]...)
	out = append(out, "--")
	return append(out, args[i:]...)
}
