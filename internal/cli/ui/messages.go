// Package ui renders command output: coloured diagnostics, tables and
// suggestions.
package ui

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/wpkernel/wpkgen/internal/compiler/errors"
)

// Level is the severity of a message
type Level int

const (
	LevelError Level = iota
	LevelWarning
	LevelInfo
)

// Message is a standardized error or notice
//
// Example output:
//
//	❌ RESOURCE NOT FOUND: Cannot find resource 'bok'.
//
//	   Did you mean: book?
//
//	   → See all resources: wpkgen inspect
type Message struct {
	Level        Level
	Context      string
	Problem      string
	Detail       string
	Suggestions  []string
	HelpCommands []string
	NoColor      bool
}

func (l Level) style() (*color.Color, string) {
	switch l {
	case LevelWarning:
		return color.New(color.FgYellow, color.Bold), "⚠️"
	case LevelInfo:
		return color.New(color.FgCyan, color.Bold), "ℹ️"
	default:
		return color.New(color.FgRed, color.Bold), "❌"
	}
}

func paint(noColor bool, attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if noColor {
		c.DisableColor()
	}
	return c
}

// Format renders m
func (m Message) Format() string {
	var b strings.Builder

	header, symbol := m.Level.style()
	if m.NoColor {
		header.DisableColor()
	}
	if m.Context != "" {
		header.Fprintf(&b, "%s %s: %s\n", symbol, strings.ToUpper(m.Context), m.Problem)
	} else {
		header.Fprintf(&b, "%s %s\n", symbol, m.Problem)
	}

	if m.Detail != "" {
		b.WriteString("\n")
		for _, line := range strings.Split(strings.TrimRight(m.Detail, "\n"), "\n") {
			fmt.Fprintf(&b, "   %s\n", line)
		}
	}

	if len(m.Suggestions) > 0 {
		b.WriteString("\n")
		paint(m.NoColor, color.FgYellow).Fprintf(&b, "   Did you mean: %s?\n", strings.Join(m.Suggestions, ", "))
	}

	if len(m.HelpCommands) > 0 {
		b.WriteString("\n")
		cyan := paint(m.NoColor, color.FgCyan)
		for _, cmd := range m.HelpCommands {
			cyan.Fprintf(&b, "   → %s\n", cmd)
		}
	}

	return b.String()
}

// Write renders m to w
func (m Message) Write(w io.Writer) {
	fmt.Fprint(w, m.Format())
}

// Success renders a success line
func Success(w io.Writer, message string, noColor bool) {
	paint(noColor, color.FgGreen, color.Bold).Fprintf(w, "✓ %s\n", message)
}

// BuildFailed renders a failed build. Plan diagnostics are listed in full;
// any other error is shown as is.
func BuildFailed(w io.Writer, err error, noColor bool) {
	msg := Message{
		Level:        LevelError,
		Context:      "build failed",
		Problem:      err.Error(),
		HelpCommands: []string{"Check the plan: wpkgen inspect <plan>", "Get help: wpkgen generate --help"},
		NoColor:      noColor,
	}
	if diags := errors.Diagnostics(err); len(diags) > 0 {
		msg.Problem = fmt.Sprintf("%d problem(s) in the plan", len(diags))
		var detail strings.Builder
		for _, d := range diags {
			detail.WriteString(d.Format())
		}
		msg.Detail = detail.String()
	}
	msg.Write(w)
}

// Warning renders a build warning on one line followed by its context
func Warning(w io.Writer, warning errors.Warning, noColor bool) {
	paint(noColor, color.FgYellow, color.Bold).Fprintf(w, "⚠️  %s", warning.Message)
	paint(noColor, color.FgHiBlack).Fprintf(w, " [%s]\n", warning.Code)

	keys := make([]string, 0, len(warning.Context))
	for k := range warning.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "     %s: %v\n", k, warning.Context[k])
	}
}

// ConfigError renders a configuration problem
func ConfigError(w io.Writer, err error, noColor bool) {
	Message{
		Level:        LevelError,
		Context:      "configuration error",
		Problem:      err.Error(),
		HelpCommands: []string{"View config: cat wpkgen.yaml", "Create one: wpkgen init"},
		NoColor:      noColor,
	}.Write(w)
}
