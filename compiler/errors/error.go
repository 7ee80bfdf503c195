// Package errors defines the diagnostics reported by the bridge processor.
package errors

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Severity represents the severity level of a diagnostic
type Severity int

const (
	Info Severity = iota
	Warning
	Error
	Fatal
)

// String returns the string representation of the severity
func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler for Severity
func (s Severity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for Severity
func (s *Severity) UnmarshalJSON(data []byte) error {
	str := string(data)
	if len(str) >= 2 && str[0] == '"' && str[len(str)-1] == '"' {
		str = str[1 : len(str)-1]
	}

	switch str {
	case "info":
		*s = Info
	case "warning":
		*s = Warning
	case "error":
		*s = Error
	case "fatal":
		*s = Fatal
	default:
		*s = Error
	}
	return nil
}

// SourceLocation represents a location in source code
type SourceLocation struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// String renders file:line:col
func (l SourceLocation) String() string {
	if l.File == "" {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Diagnostic is a structured compile-time report about one element
type Diagnostic struct {
	Phase    string         // "scanner", "validator", "codegen", "stamp"
	Code     string         // e.g. DUPLICATE_CAPABILITY
	Message  string         // Human-readable message
	Severity Severity       // Error, Warning, Info
	Location SourceLocation // File, line, column
	Element  string         // Element reference, e.g. (*vote.Service).Cast
	Related  []Diagnostic   // Other elements involved
}

// Error implements the error interface
func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s: %s", d.Location, d.Code, d.Message)
}

// New creates a diagnostic, deriving the phase from the code
func New(code, message string, location SourceLocation, severity Severity) Diagnostic {
	if message == "" {
		message = GetErrorMessage(code)
	}
	return Diagnostic{
		Phase:    GetPhaseForCode(code),
		Code:     code,
		Message:  message,
		Location: location,
		Severity: severity,
		Related:  []Diagnostic{},
	}
}

// Errorf creates an error-severity diagnostic with a formatted message
func Errorf(code string, location SourceLocation, format string, args ...interface{}) Diagnostic {
	return New(code, fmt.Sprintf(format, args...), location, Error)
}

// Warnf creates a warning diagnostic with a formatted message
func Warnf(code string, location SourceLocation, format string, args ...interface{}) Diagnostic {
	return New(code, fmt.Sprintf(format, args...), location, Warning)
}

// WithElement sets the element reference
func (d Diagnostic) WithElement(element string) Diagnostic {
	d.Element = element
	return d
}

// WithRelated adds a related diagnostic
func (d Diagnostic) WithRelated(related Diagnostic) Diagnostic {
	d.Related = append(d.Related, related)
	return d
}

// MarshalJSON implements json.Marshaler
func (d Diagnostic) MarshalJSON() ([]byte, error) {
	related := d.Related
	if related == nil {
		related = []Diagnostic{}
	}
	return json.Marshal(struct {
		Phase    string         `json:"phase"`
		Code     string         `json:"code"`
		Message  string         `json:"message"`
		Severity Severity       `json:"severity"`
		Location SourceLocation `json:"location"`
		Element  string         `json:"element,omitempty"`
		Related  []Diagnostic   `json:"related"`
	}{
		Phase:    d.Phase,
		Code:     d.Code,
		Message:  d.Message,
		Severity: d.Severity,
		Location: d.Location,
		Element:  d.Element,
		Related:  related,
	})
}

// IsError returns true if the diagnostic is at Error or Fatal severity
func (d Diagnostic) IsError() bool {
	return d.Severity == Error || d.Severity == Fatal
}

// IsWarning returns true if the diagnostic is at Warning severity
func (d Diagnostic) IsWarning() bool {
	return d.Severity == Warning
}

// List is an ordered collection of diagnostics
type List []Diagnostic

// HasErrors reports whether any diagnostic blocks generation
func (l List) HasErrors() bool {
	for _, d := range l {
		if d.IsError() {
			return true
		}
	}
	return false
}

// Errors returns the error and fatal diagnostics
func (l List) Errors() List {
	var out List
	for _, d := range l {
		if d.IsError() {
			out = append(out, d)
		}
	}
	return out
}

// Warnings returns the warning diagnostics
func (l List) Warnings() List {
	var out List
	for _, d := range l {
		if d.IsWarning() {
			out = append(out, d)
		}
	}
	return out
}

// WithCode returns the diagnostics carrying code
func (l List) WithCode(code string) List {
	var out List
	for _, d := range l {
		if d.Code == code {
			out = append(out, d)
		}
	}
	return out
}

// Sorted returns a copy ordered by file, line, column and code
func (l List) Sorted() List {
	out := make(List, len(l))
	copy(out, l)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Location, out[j].Location
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		return out[i].Code < out[j].Code
	})
	return out
}
