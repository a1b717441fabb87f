// Package ui renders command output: styled messages, key/value panels and
// desktop notifications.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	cyan    = lipgloss.Color("#00FFFF")
	magenta = lipgloss.Color("#FF00FF")
	green   = lipgloss.Color("#39FF14")
	yellow  = lipgloss.Color("#FFFF00")
	red     = lipgloss.Color("#FF3131")
	dim     = lipgloss.Color("#B0B0B0")

	titleStyle   = lipgloss.NewStyle().Foreground(magenta).Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(cyan).Bold(true)
	valueStyle   = lipgloss.NewStyle().Foreground(yellow)
	successStyle = lipgloss.NewStyle().Foreground(green).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(yellow)
	errorStyle   = lipgloss.NewStyle().Foreground(red).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(dim)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(magenta).
			Padding(0, 1)
)

// Printer writes styled lines to Out. Quiet suppresses everything but errors.
type Printer struct {
	Out   io.Writer
	Quiet bool
}

// NewPrinter writes to stdout
func NewPrinter(quiet bool) *Printer {
	return &Printer{Out: os.Stdout, Quiet: quiet}
}

func (p *Printer) println(s string) {
	fmt.Fprintln(p.Out, s)
}

// Title prints a heading
func (p *Printer) Title(msg string) {
	if !p.Quiet {
		p.println(titleStyle.Render(msg))
	}
}

// Info prints a label and its value
func (p *Printer) Info(label, value string) {
	if !p.Quiet {
		p.println(labelStyle.Render(label+":") + " " + valueStyle.Render(value))
	}
}

// Success prints a success message
func (p *Printer) Success(format string, args ...interface{}) {
	if !p.Quiet {
		p.println(successStyle.Render(fmt.Sprintf(format, args...)))
	}
}

// Warning prints a warning
func (p *Printer) Warning(format string, args ...interface{}) {
	if !p.Quiet {
		p.println(warningStyle.Render(fmt.Sprintf(format, args...)))
	}
}

// Error prints an error even in quiet mode
func (p *Printer) Error(format string, args ...interface{}) {
	p.println(errorStyle.Render(fmt.Sprintf(format, args...)))
}

// Hint prints dimmed help text
func (p *Printer) Hint(msg string) {
	if !p.Quiet {
		p.println(dimStyle.Render(msg))
	}
}

// Panel prints a bordered block of aligned key/value rows
func (p *Printer) Panel(title string, rows []Row) {
	if !p.Quiet {
		p.println(RenderPanel(title, rows))
	}
}

// Row is one line of a panel
type Row struct {
	Label string
	Value string
}

// RenderPanel lays rows out under title with labels padded to one width
func RenderPanel(title string, rows []Row) string {
	width := 0
	for _, r := range rows {
		width = max(width, lipgloss.Width(r.Label))
	}

	lines := []string{titleStyle.Render(title)}
	for _, r := range rows {
		pad := strings.Repeat(" ", width-lipgloss.Width(r.Label))
		lines = append(lines, labelStyle.Render(r.Label)+pad+"  "+valueStyle.Render(r.Value))
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}
