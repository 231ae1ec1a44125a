// Package ui renders the progress lines shown to the user. Color
// honors NO_COLOR and degrades to plain text on non-terminals.
package ui

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Icons.
const (
	IconOK   = "✓"
	IconFail = "✗"
)

// Printer writes human-oriented progress lines. Silent mode drops
// everything except failures.
type Printer struct {
	out    io.Writer
	silent bool

	ok   lipgloss.Style
	bad  lipgloss.Style
	dim  lipgloss.Style
	bold lipgloss.Style
}

// NewPrinter creates a printer bound to w.
func NewPrinter(w io.Writer, silent bool) *Printer {
	if w == nil {
		w = os.Stdout
	}

	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(colorProfile())

	return &Printer{
		out:    w,
		silent: silent,
		ok:     r.NewStyle().Foreground(lipgloss.Color("42")),
		bad:    r.NewStyle().Foreground(lipgloss.Color("160")),
		dim:    r.NewStyle().Faint(true),
		bold:   r.NewStyle().Bold(true),
	}
}

// colorProfile returns the color profile to use. NO_COLOR forces
// plain output regardless of terminal capabilities.
func colorProfile() termenv.Profile {
	if os.Getenv("NO_COLOR") != "" {
		return termenv.Ascii
	}
	return termenv.EnvColorProfile()
}

// Step prints a completed pipeline step with its duration.
func (p *Printer) Step(name string, d time.Duration) {
	if p.silent {
		return
	}
	fmt.Fprintf(p.out, "%s %s %s\n", p.ok.Render(IconOK), name, p.dim.Render(d.Round(time.Millisecond).String()))
}

// Fail prints a failed step. Failures print even in silent mode.
func (p *Printer) Fail(name string, code int) {
	fmt.Fprintf(p.out, "%s %s %s\n", p.bad.Render(IconFail), name, p.dim.Render(fmt.Sprintf("exit %d", code)))
}

// UpToDate reports that the installer was served from cache.
func (p *Printer) UpToDate(artifact string) {
	if p.silent {
		return
	}
	fmt.Fprintf(p.out, "%s %s %s\n", p.ok.Render(IconOK), p.bold.Render(artifact), p.dim.Render("(cached)"))
}

// Summary prints the final artifact line.
func (p *Printer) Summary(artifact string, size int64, d time.Duration) {
	if p.silent {
		return
	}
	detail := fmt.Sprintf("%s in %s", HumanSize(size), d.Round(time.Millisecond))
	fmt.Fprintf(p.out, "%s %s %s\n", p.ok.Render(IconOK), p.bold.Render(artifact), p.dim.Render(detail))
}

// Infof prints a formatted informational line.
func (p *Printer) Infof(format string, args ...any) {
	if p.silent {
		return
	}
	fmt.Fprintf(p.out, format+"\n", args...)
}

// HumanSize renders a byte count in binary units.
func HumanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
