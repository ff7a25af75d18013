// Package style renders the user-facing progress lines written to stdout.
package style

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Palette
var (
	SuccessColor = lipgloss.AdaptiveColor{Light: "#2E7D32", Dark: "#66BB6A"}
	ErrorColor   = lipgloss.AdaptiveColor{Light: "#C62828", Dark: "#EF5350"}
	WarningColor = lipgloss.AdaptiveColor{Light: "#EF6C00", Dark: "#FFA726"}
	HeadingColor = lipgloss.AdaptiveColor{Light: "#1565C0", Dark: "#42A5F5"}
	MutedColor   = lipgloss.AdaptiveColor{Light: "#757575", Dark: "#9E9E9E"}
)

// Printer writes styled lines to Out. Colors are only emitted when Out is
// a terminal that supports them.
type Printer struct {
	Out io.Writer

	step    lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	warning lipgloss.Style
	muted   lipgloss.Style
}

// NewPrinter creates a Printer whose color profile is detected from out.
func NewPrinter(out io.Writer) *Printer {
	r := lipgloss.NewRenderer(out)
	return &Printer{
		Out:     out,
		step:    r.NewStyle().Foreground(HeadingColor).Bold(true),
		success: r.NewStyle().Foreground(SuccessColor).Bold(true),
		failure: r.NewStyle().Foreground(ErrorColor).Bold(true),
		warning: r.NewStyle().Foreground(WarningColor),
		muted:   r.NewStyle().Foreground(MutedColor),
	}
}

// Writer exposes the underlying writer for components that print plain
// lines, such as echoed commands.
func (p *Printer) Writer() io.Writer {
	if p == nil || p.Out == nil {
		return io.Discard
	}
	return p.Out
}

func (p *Printer) Step(format string, args ...any) {
	p.line(func(p *Printer) lipgloss.Style { return p.step }, format, args...)
}

func (p *Printer) Success(format string, args ...any) {
	p.line(func(p *Printer) lipgloss.Style { return p.success }, format, args...)
}

func (p *Printer) Failure(format string, args ...any) {
	p.line(func(p *Printer) lipgloss.Style { return p.failure }, format, args...)
}

func (p *Printer) Warning(format string, args ...any) {
	p.line(func(p *Printer) lipgloss.Style { return p.warning }, format, args...)
}

func (p *Printer) Muted(format string, args ...any) {
	p.line(func(p *Printer) lipgloss.Style { return p.muted }, format, args...)
}

// line renders one line with the style picked by sel. A nil Printer or a
// Printer without Out prints nothing; sel is only called after that check.
func (p *Printer) line(sel func(*Printer) lipgloss.Style, format string, args ...any) {
	if p == nil || p.Out == nil {
		return
	}
	fmt.Fprintln(p.Out, sel(p).Render(fmt.Sprintf(format, args...)))
}
