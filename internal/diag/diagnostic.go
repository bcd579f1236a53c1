package diag

import (
	"fmt"
	"strings"
)

// Stage identifies which analysis produced the diagnostic.
type Stage string

const (
	StageFlow     Stage = "flow"
	StagePatterns Stage = "patterns"
)

// Severity captures how impactful the diagnostic is.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityNote    Severity = "note"
)

// LabeledSpan represents a span with an optional label.
type LabeledSpan struct {
	Span  Span
	Label string // Optional label (e.g., "may be null here")
	Style string // "primary" or "secondary" - primary spans are emphasized
}

// Code is a stable identifier for a diagnostic.
type Code string

const (
	// Nullable flow findings
	CodeNullDereference Code = "NULL_DEREFERENCE"
	CodeNullReturn      Code = "NULL_RETURN"
	CodeNullAssignment  Code = "NULL_ASSIGNMENT"
	CodeNullArgument    Code = "NULL_ARGUMENT"
	CodeNullUnwrap      Code = "NULL_UNWRAP"

	// Pattern findings
	CodeSwitchNotExhaustive                Code = "SWITCH_NOT_EXHAUSTIVE"
	CodeSwitchNotExhaustiveWithWhen        Code = "SWITCH_NOT_EXHAUSTIVE_WITH_WHEN"
	CodeSwitchNotExhaustiveForNull         Code = "SWITCH_NOT_EXHAUSTIVE_FOR_NULL"
	CodeSwitchNotExhaustiveForNullWithWhen Code = "SWITCH_NOT_EXHAUSTIVE_FOR_NULL_WITH_WHEN"
	CodePatternArmSubsumed                 Code = "PATTERN_ARM_SUBSUMED"
)

// Span represents a location in source code.
type Span struct {
	Filename string
	Line     int
	Column   int
	Start    int
	End      int
}

// String returns a human-readable representation of the span.
func (s Span) String() string {
	if s.Filename != "" {
		return fmt.Sprintf("%s:%d:%d", s.Filename, s.Line, s.Column)
	}
	return fmt.Sprintf("%d:%d", s.Line, s.Column)
}

// IsValid returns true if the span has valid location information.
func (s Span) IsValid() bool {
	return s.Line > 0 && s.Column > 0
}

// Before orders spans by line, then column.
func (s Span) Before(other Span) bool {
	if s.Line != other.Line {
		return s.Line < other.Line
	}
	return s.Column < other.Column
}

// Diagnostic is a finding surfaced to end-users.
type Diagnostic struct {
	Stage    Stage
	Severity Severity
	Code     Code
	Message  string
	Span     Span
	// Args are the raw message arguments (slot paths, rendered patterns) so
	// consumers can re-format without parsing Message.
	Args         []string
	Related      []Span
	LabeledSpans []LabeledSpan
	Notes        []string
	Help         string
}

// String renders the diagnostic on one line.
func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s[%s]: %s", d.Span, d.Severity, d.Code, d.Message)
}

// Key identifies a diagnostic by code, position and arguments.
func (d Diagnostic) Key() string {
	return fmt.Sprintf("%s@%d:%d(%s)", d.Code, d.Span.Line, d.Span.Column, strings.Join(d.Args, ","))
}

// WithRelated returns a new diagnostic with the given related span added.
func (d Diagnostic) WithRelated(span Span) Diagnostic {
	d.Related = append(d.Related, span)
	return d
}

// WithLabeledSpan adds a labeled span to the diagnostic.
func (d Diagnostic) WithLabeledSpan(span Span, label string, style string) Diagnostic {
	if style == "" {
		style = "primary"
	}
	d.LabeledSpans = append(d.LabeledSpans, LabeledSpan{
		Span:  span,
		Label: label,
		Style: style,
	})
	return d
}

// WithPrimarySpan adds a primary labeled span.
func (d Diagnostic) WithPrimarySpan(span Span, label string) Diagnostic {
	return d.WithLabeledSpan(span, label, "primary")
}

// WithSecondarySpan adds a secondary labeled span.
func (d Diagnostic) WithSecondarySpan(span Span, label string) Diagnostic {
	return d.WithLabeledSpan(span, label, "secondary")
}

// WithNote adds a note to the diagnostic.
func (d Diagnostic) WithNote(note string) Diagnostic {
	d.Notes = append(d.Notes, note)
	return d
}

// WithHelp adds help text to the diagnostic.
func (d Diagnostic) WithHelp(help string) Diagnostic {
	d.Help = help
	return d
}
