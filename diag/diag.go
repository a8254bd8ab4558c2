// Package diag holds the compile/assemble message record shared by the
// asm and compiler packages: a severity, text, and source location,
// collected rather than thrown and printed by CLIs as "Error: L,C: text".
package diag

import "fmt"

// Severity classifies a Message.
type Severity int

const (
	Error Severity = iota
	Warning
)

func (s Severity) String() string {
	if s == Warning {
		return "Warning"
	}
	return "Error"
}

// Location is a source line/column, 1-based.
type Location struct {
	Line   int
	Column int
}

func (l Location) String() string {
	return fmt.Sprintf("%d,%d", l.Line, l.Column)
}

// Message is one diagnostic produced while lexing, parsing, compiling, or
// assembling. Messages are collected into a slice, never thrown or
// panicked; a translation unit succeeds only if no Error-severity message
// is present.
type Message struct {
	Severity Severity
	Text     string
	Loc      Location
}

func (m Message) String() string {
	return fmt.Sprintf("%s: %s: %s", m.Severity, m.Loc, m.Text)
}

// Messages is a convenience slice with a HasError helper.
type Messages []Message

// HasError reports whether any message in the slice has Error severity.
func (ms Messages) HasError() bool {
	for _, m := range ms {
		if m.Severity == Error {
			return true
		}
	}
	return false
}
