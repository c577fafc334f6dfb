package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// ErrorLevel represents the severity of an error message
type ErrorLevel int

const (
	ErrorLevelError ErrorLevel = iota
	ErrorLevelWarning
)

// ErrorOptions configures the error message formatting
type ErrorOptions struct {
	Level        ErrorLevel
	Context      string
	Problem      string
	Suggestions  []string
	HelpCommands []string
	NoColor      bool
}

// FormatError creates an error message with suggestions and help commands
//
// Example output:
//
//	✗ DEFINITION NOT FOUND: shapes.circl
//
//	   Did you mean: shapes.Circle?
//
//	   → List definitions: declmeta describe --format tree <fixture>
func FormatError(opts ErrorOptions) string {
	var b strings.Builder

	header := color.New(color.FgRed, color.Bold)
	symbol := "✗"
	if opts.Level == ErrorLevelWarning {
		header = color.New(color.FgYellow, color.Bold)
		symbol = "!"
	}
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)
	if opts.NoColor {
		header.DisableColor()
		yellow.DisableColor()
		cyan.DisableColor()
	}

	if opts.Context != "" {
		header.Fprintf(&b, "%s %s: %s\n", symbol, strings.ToUpper(opts.Context), opts.Problem)
	} else {
		header.Fprintf(&b, "%s %s\n", symbol, opts.Problem)
	}

	if len(opts.Suggestions) > 0 {
		b.WriteString("\n")
		yellow.Fprintf(&b, "   Did you mean: %s?\n", strings.Join(opts.Suggestions, ", "))
	}

	if len(opts.HelpCommands) > 0 {
		b.WriteString("\n")
		for _, cmd := range opts.HelpCommands {
			cyan.Fprintf(&b, "   → %s\n", cmd)
		}
	}

	return b.String()
}

// WriteError writes a formatted error message to the writer
func WriteError(w io.Writer, opts ErrorOptions) {
	fmt.Fprint(w, FormatError(opts))
}

// WriteSuccess writes a success message to the writer
func WriteSuccess(w io.Writer, message string, noColor bool) {
	green := color.New(color.FgGreen, color.Bold)
	if noColor {
		green.DisableColor()
	}
	fmt.Fprintln(w, green.Sprintf("✓ %s", message))
}

// DefinitionNotFound formats a lookup miss with near-miss suggestions.
func DefinitionNotFound(name string, suggestions []string, noColor bool) string {
	return FormatError(ErrorOptions{
		Level:       ErrorLevelError,
		Context:     "definition not found",
		Problem:     name,
		Suggestions: suggestions,
		HelpCommands: []string{
			"List definitions: declmeta describe --format tree <fixture>",
		},
		NoColor: noColor,
	})
}

// NoMatchWarning formats a filter that selected nothing.
func NoMatchWarning(patterns []string, suggestions []string, noColor bool) string {
	return FormatError(ErrorOptions{
		Level:       ErrorLevelWarning,
		Context:     "no match",
		Problem:     fmt.Sprintf("no top-level declaration matches %s", strings.Join(patterns, ", ")),
		Suggestions: suggestions,
		NoColor:     noColor,
	})
}
