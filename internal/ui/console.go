package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

type ConsoleStyle int

const (
	StyleNormal ConsoleStyle = iota
	StyleError
	StyleWarning
	StyleSuccess
	StyleInfo
)

var styles = map[ConsoleStyle]lipgloss.Style{
	StyleError:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
	StyleWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	StyleSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	StyleInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
}

// Console prints user-facing messages. Results go to out, diagnostics to errOut.
type Console struct {
	out       io.Writer
	errOut    io.Writer
	useColors bool
}

func NewConsole() *Console {
	return &Console{
		out:       os.Stdout,
		errOut:    os.Stderr,
		useColors: isTerminal(os.Stderr),
	}
}

// NewConsoleWithWriters returns an uncoloured console writing to the given writers.
func NewConsoleWithWriters(out, errOut io.Writer) *Console {
	return &Console{out: out, errOut: errOut}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func (c *Console) formatMessage(style ConsoleStyle, message string) string {
	if !c.useColors {
		return message
	}

	s, ok := styles[style]
	if !ok {
		return message
	}
	return s.Render(message)
}

func (c *Console) PrintError(message string) {
	fmt.Fprintf(c.errOut, "%s\n", c.formatMessage(StyleError, "Error: "+message))
}

func (c *Console) PrintWarning(message string) {
	fmt.Fprintf(c.errOut, "%s\n", c.formatMessage(StyleWarning, "Warning: "+message))
}

func (c *Console) PrintSuccess(message string) {
	fmt.Fprintf(c.out, "%s\n", c.formatMessage(StyleSuccess, message))
}

func (c *Console) PrintInfo(message string) {
	fmt.Fprintf(c.out, "%s\n", c.formatMessage(StyleInfo, message))
}

// PrintOutput writes captured process output verbatim: stdout to out and
// stderr to errOut.
func (c *Console) PrintOutput(stdout, stderr string) {
	if stdout != "" {
		fmt.Fprint(c.out, stdout)
	}
	if stderr != "" {
		fmt.Fprint(c.errOut, stderr)
	}
}

func (c *Console) FormatErrorMessage(context, cause, suggestion string) string {
	var parts []string

	if context != "" {
		parts = append(parts, context)
	}

	if cause != "" {
		parts = append(parts, fmt.Sprintf("Cause: %s", cause))
	}

	if suggestion != "" {
		parts = append(parts, fmt.Sprintf("Suggestion: %s", suggestion))
	}

	return strings.Join(parts, "\n")
}
