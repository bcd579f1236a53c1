package diag_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/malphas-lang/nullflow/internal/diag"
)

func TestDiagnosticBuilders(t *testing.T) {
	span := diag.Span{Filename: "a.cs", Line: 3, Column: 5, Start: 10, End: 11}
	d := diag.Diagnostic{
		Stage:    diag.StageFlow,
		Severity: diag.SeverityWarning,
		Code:     diag.CodeNullDereference,
		Message:  "dereference of a possibly null reference 'x'",
		Span:     span,
	}.WithPrimarySpan(span, "may be null here").WithNote("x was assigned null").WithHelp("check for null first")

	if len(d.LabeledSpans) != 1 || d.LabeledSpans[0].Style != "primary" {
		t.Fatalf("expected one primary span, got %+v", d.LabeledSpans)
	}
	if len(d.Notes) != 1 || d.Help == "" {
		t.Fatalf("expected note and help, got %+v", d)
	}
	if got := d.String(); got != "a.cs:3:5: warning[NULL_DEREFERENCE]: dereference of a possibly null reference 'x'" {
		t.Fatalf("unexpected String(): %q", got)
	}
}

func warning(code diag.Code, span diag.Span, args []string, msg string) diag.Diagnostic {
	return diag.Diagnostic{Stage: diag.StageFlow, Severity: diag.SeverityWarning, Code: code, Message: msg, Span: span, Args: args}
}

func TestReporterSortsAndDeduplicates(t *testing.T) {
	r := diag.NewReporter()
	late := diag.Span{Line: 9, Column: 1}
	early := diag.Span{Line: 2, Column: 7}

	r.Add(warning(diag.CodeNullReturn, late, []string{"y"}, "possible null reference return"))
	r.Add(warning(diag.CodeNullDereference, early, []string{"x"}, "dereference of 'x'"))
	if r.Add(warning(diag.CodeNullDereference, early, []string{"x"}, "dereference of 'x'")) {
		t.Fatalf("duplicate diagnostic was accepted")
	}

	got := r.Diagnostics()
	if len(got) != 2 {
		t.Fatalf("expected 2 diagnostics, got %d", len(got))
	}
	if got[0].Code != diag.CodeNullDereference || got[1].Code != diag.CodeNullReturn {
		t.Fatalf("diagnostics not sorted by position: %v", got)
	}
}

func TestReporterMute(t *testing.T) {
	r := diag.NewReporter()
	r.Mute()
	r.Mute()
	r.Add(warning(diag.CodeNullArgument, diag.Span{Line: 1, Column: 1}, nil, "muted"))
	r.Unmute()
	if !r.Muted() {
		t.Fatalf("expected reporter to stay muted after one Unmute")
	}
	r.Unmute()
	r.Add(warning(diag.CodeNullArgument, diag.Span{Line: 1, Column: 1}, nil, "heard"))

	if r.Len() != 1 || r.Diagnostics()[0].Message != "heard" {
		t.Fatalf("expected only the unmuted report, got %v", r.Diagnostics())
	}
}

func TestFormatterSnippet(t *testing.T) {
	var buf bytes.Buffer
	f := diag.NewFormatter(&buf)
	f.AddSource("a.cs", "void M(string? x) {\n  x.Length;\n}\n")

	span := diag.Span{Filename: "a.cs", Line: 2, Column: 3, Start: 22, End: 23}
	f.Format(diag.Diagnostic{
		Severity: diag.SeverityWarning,
		Code:     diag.CodeNullDereference,
		Message:  "dereference of a possibly null reference 'x'",
		Span:     span,
	}.WithPrimarySpan(span, "may be null here"))

	out := buf.String()
	for _, want := range []string{
		"warning[NULL_DEREFERENCE]: dereference of a possibly null reference 'x'",
		"--> a.cs:2:3",
		" 2 |   x.Length;",
		"   |   ^ may be null here",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("colour codes written to a non-terminal writer:\n%s", out)
	}
}

func TestFormatterWithoutSource(t *testing.T) {
	var buf bytes.Buffer
	f := diag.NewFormatter(&buf)

	f.Format(diag.Diagnostic{
		Severity: diag.SeverityWarning,
		Code:     diag.CodeSwitchNotExhaustiveForNull,
		Message:  "switch does not handle some null inputs",
		Notes:    []string{"unhandled: (null, _)"},
	})

	out := buf.String()
	if !strings.Contains(out, "warning[SWITCH_NOT_EXHAUSTIVE_FOR_NULL]") || !strings.Contains(out, "= note: unhandled: (null, _)") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}
