package errors

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

var (
	boldColor    = color.New(color.Bold)
	locColor     = color.New(color.FgCyan)
	elementColor = color.New(color.FgHiBlack)
)

// FormatForTerminal formats a Diagnostic for terminal output
func (d Diagnostic) FormatForTerminal() string {
	var sb strings.Builder

	severityColor := getSeverityColor(d.Severity)
	sb.WriteString(fmt.Sprintf("%s[%s]: %s\n",
		severityColor.Sprint(d.Severity.String()),
		d.Code,
		d.Message))

	sb.WriteString(fmt.Sprintf("  %s %s\n", locColor.Sprint("-->"), d.Location))

	if d.Element != "" {
		sb.WriteString(fmt.Sprintf("  %s\n", elementColor.Sprint("in "+d.Element)))
	}

	if len(d.Related) > 0 {
		sb.WriteString(fmt.Sprintf("  %s\n", boldColor.Sprint("related:")))
		for i, related := range d.Related {
			ref := related.Location.String()
			if related.Element != "" {
				ref += " (" + related.Element + ")"
			}
			sb.WriteString(fmt.Sprintf("    %d. %s: %s\n", i+1, ref, related.Message))
		}
	}

	return sb.String()
}

// FormatForTerminal formats every diagnostic followed by a summary line
func (l List) FormatForTerminal() string {
	var sb strings.Builder
	for _, d := range l {
		sb.WriteString(d.FormatForTerminal())
		sb.WriteString("\n")
	}

	errs, warns := len(l.Errors()), len(l.Warnings())
	summary := fmt.Sprintf("%d error(s), %d warning(s)", errs, warns)
	if errs > 0 {
		sb.WriteString(getSeverityColor(Error).Sprint(summary))
	} else {
		sb.WriteString(summary)
	}
	sb.WriteString("\n")
	return sb.String()
}

// getSeverityColor returns the color for a severity level
func getSeverityColor(severity Severity) *color.Color {
	switch severity {
	case Info:
		return color.New(color.FgBlue, color.Bold)
	case Warning:
		return color.New(color.FgYellow, color.Bold)
	case Error, Fatal:
		return color.New(color.FgRed, color.Bold)
	default:
		return color.New(color.Reset)
	}
}
