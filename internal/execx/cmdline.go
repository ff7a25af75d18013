package execx

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/mattn/go-shellwords"
)

// ParseCommandLine renders line as a text/template with data and splits
// the result into a Command using shell quoting rules. Pipes, redirects
// and other shell operators are rejected; the result is always a single
// process invocation.
func ParseCommandLine(line string, data any) (Command, error) {
	rendered := line
	if data != nil {
		tmpl, err := template.New("command").Option("missingkey=error").Parse(line)
		if err != nil {
			return Command{}, fmt.Errorf("parsing command template %q: %w", line, err)
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return Command{}, fmt.Errorf("rendering command template %q: %w", line, err)
		}
		rendered = buf.String()
	}

	p := shellwords.NewParser()
	args, err := p.Parse(rendered)
	if err != nil {
		return Command{}, fmt.Errorf("splitting command %q: %w", rendered, err)
	}
	if p.Position != -1 {
		return Command{}, fmt.Errorf("command %q contains shell operators", rendered)
	}
	if len(args) == 0 {
		return Command{}, fmt.Errorf("command %q is empty", rendered)
	}
	return NewCommand(args[0], args[1:]...), nil
}
