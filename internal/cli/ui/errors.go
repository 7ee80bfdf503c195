package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Level of a problem message.
type Level int

const (
	LevelError Level = iota
	LevelWarning
	LevelInfo
)

// Problem is a user-facing message with optional follow-ups.
//
//	✗ UNKNOWN CAPABILITY: vote.cats
//	   No capability with this id was found.
//
//	   Did you mean: vote.cast?
//
//	   → List capabilities: bridgegen list
type Problem struct {
	Level       Level
	Context     string
	Subject     string
	Detail      string
	Suggestions []string
	Hints       []string
}

// Format renders the problem.
func (p Problem) Format(noColor bool) string {
	var b strings.Builder

	var attr color.Attribute
	var symbol string
	switch p.Level {
	case LevelWarning:
		attr, symbol = color.FgYellow, "!"
	case LevelInfo:
		attr, symbol = color.FgCyan, "i"
	default:
		attr, symbol = color.FgRed, "✗"
	}
	head := newColor(noColor, attr, color.Bold)
	body := newColor(noColor, attr)

	switch {
	case p.Context != "" && p.Subject != "":
		head.Fprintf(&b, "%s %s: %s\n", symbol, strings.ToUpper(p.Context), p.Subject)
	case p.Context != "":
		head.Fprintf(&b, "%s %s\n", symbol, strings.ToUpper(p.Context))
	default:
		head.Fprintf(&b, "%s %s\n", symbol, p.Subject)
	}
	if p.Detail != "" {
		body.Fprintf(&b, "   %s\n", p.Detail)
	}
	if len(p.Suggestions) > 0 {
		b.WriteString("\n")
		newColor(noColor, color.FgYellow).Fprintf(&b, "   Did you mean: %s?\n", strings.Join(p.Suggestions, ", "))
	}
	if len(p.Hints) > 0 {
		b.WriteString("\n")
		cyan := newColor(noColor, color.FgCyan)
		for _, h := range p.Hints {
			cyan.Fprintf(&b, "   → %s\n", h)
		}
	}
	return b.String()
}

// Write renders the problem to w.
func (p Problem) Write(w io.Writer, noColor bool) {
	fmt.Fprint(w, p.Format(noColor))
}

// UnknownCapability reports an id that no scanned package declares.
func UnknownCapability(id string, suggestions []string) Problem {
	return Problem{
		Context:     "unknown capability",
		Subject:     id,
		Detail:      "No capability with this id was found.",
		Suggestions: suggestions,
		Hints:       []string{"List capabilities: bridgegen list"},
	}
}

// Rejected reports packages whose diagnostics blocked generation.
func Rejected(packages []string) Problem {
	return Problem{
		Context: "generation rejected",
		Subject: strings.Join(packages, ", "),
		Detail:  "No registry or descriptor was written for these packages.",
		Hints: []string{
			"Check without writing: bridgegen check",
			"Machine-readable diagnostics: bridgegen check --json",
		},
	}
}

// ConfigProblem reports an invalid configuration.
func ConfigProblem(err error) Problem {
	return Problem{
		Context: "configuration error",
		Detail:  err.Error(),
		Hints: []string{
			"Create a configuration: bridgegen init",
			"Get help: bridgegen --help",
		},
	}
}

// Stale reports generated artifacts that disagree with their sources.
func Stale(details []string) Problem {
	return Problem{
		Level:   LevelWarning,
		Context: "stale artifacts",
		Detail:  strings.Join(details, "\n   "),
		Hints:   []string{"Regenerate: bridgegen generate"},
	}
}

// FormatSuccess renders a success line.
func FormatSuccess(message string, noColor bool) string {
	return newColor(noColor, color.FgGreen, color.Bold).Sprintf("✓ %s", message)
}

// WriteSuccess writes a success line to w.
func WriteSuccess(w io.Writer, message string, noColor bool) {
	fmt.Fprintln(w, FormatSuccess(message, noColor))
}
