package diag

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"
)

const (
	ansiReset  = "\x1b[0m"
	ansiBold   = "\x1b[1m"
	ansiYellow = "\x1b[33m"
	ansiRed    = "\x1b[31m"
	ansiBlue   = "\x1b[34m"
)

// Formatter formats diagnostics in a Rust-style format with source code snippets.
type Formatter struct {
	out         io.Writer
	color       bool
	sourceCache map[string]string // Cache of source files by filename
}

// NewFormatter creates a formatter writing to out. Colour is enabled when
// out is a terminal.
func NewFormatter(out io.Writer) *Formatter {
	color := false
	if f, ok := out.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Formatter{
		out:         out,
		color:       color,
		sourceCache: make(map[string]string),
	}
}

// SetColor forces colour output on or off.
func (f *Formatter) SetColor(on bool) { f.color = on }

// AddSource registers source text for a file so it is not read from disk.
func (f *Formatter) AddSource(filename, src string) {
	f.sourceCache[filename] = src
}

// LoadSource loads source code for a file (cached).
func (f *Formatter) LoadSource(filename string) (string, error) {
	if filename == "" {
		return "", nil
	}
	if src, ok := f.sourceCache[filename]; ok {
		return src, nil
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return "", err
	}
	src := string(data)
	f.sourceCache[filename] = src
	return src, nil
}

// FormatAll formats every diagnostic in order.
func (f *Formatter) FormatAll(ds []Diagnostic) {
	for i, d := range ds {
		if i > 0 {
			fmt.Fprintln(f.out)
		}
		f.Format(d)
	}
}

// Format formats and prints a diagnostic.
func (f *Formatter) Format(d Diagnostic) {
	spans := f.collectSpans(d)
	if len(spans) == 0 {
		f.formatSimple(d)
		return
	}

	// Group spans by file
	spansByFile := make(map[string][]LabeledSpan)
	var files []string
	for _, span := range spans {
		filename := span.Span.Filename
		if filename == "" {
			filename = "<unknown>"
		}
		if _, ok := spansByFile[filename]; !ok {
			files = append(files, filename)
		}
		spansByFile[filename] = append(spansByFile[filename], span)
	}

	f.printHeader(d)

	for _, filename := range files {
		src, err := f.LoadSource(filename)
		if err != nil || src == "" {
			fmt.Fprintf(f.out, "  --> %s\n", d.Span.String())
			continue
		}
		f.printFileSpans(filename, src, spansByFile[filename])
	}

	f.printHelp(d)
}

// collectSpans collects all spans from the diagnostic, prioritizing LabeledSpans.
func (f *Formatter) collectSpans(d Diagnostic) []LabeledSpan {
	if len(d.LabeledSpans) > 0 {
		return d.LabeledSpans
	}
	if d.Span.IsValid() {
		return []LabeledSpan{{Span: d.Span, Style: "primary"}}
	}
	return nil
}

func (f *Formatter) paint(code, s string) string {
	if !f.color {
		return s
	}
	return code + s + ansiReset
}

// printHeader prints the header (warning[CODE]: message).
func (f *Formatter) printHeader(d Diagnostic) {
	severity := string(d.Severity)
	if severity == "" {
		severity = string(SeverityWarning)
	}
	colorCode := ansiYellow
	if d.Severity == SeverityError {
		colorCode = ansiRed
	}

	if d.Code != "" {
		fmt.Fprintf(f.out, "%s: %s\n", f.paint(ansiBold+colorCode, fmt.Sprintf("%s[%s]", severity, d.Code)), d.Message)
	} else {
		fmt.Fprintf(f.out, "%s: %s\n", f.paint(ansiBold+colorCode, severity), d.Message)
	}
}

// printFileSpans prints source code with underlines for spans in a file.
func (f *Formatter) printFileSpans(filename string, src string, spans []LabeledSpan) {
	sort.Slice(spans, func(i, j int) bool {
		return spans[i].Span.Before(spans[j].Span)
	})

	spansByLine := make(map[int][]LabeledSpan)
	lines := strings.Split(src, "\n")
	maxLine := len(lines)

	for _, span := range spans {
		line := span.Span.Line
		if line > 0 && line <= maxLine {
			spansByLine[line] = append(spansByLine[line], span)
		}
	}

	lineNumbers := make([]int, 0, len(spansByLine))
	for line := range spansByLine {
		lineNumbers = append(lineNumbers, line)
	}
	sort.Ints(lineNumbers)

	if len(lineNumbers) == 0 {
		return
	}

	// One line of context on each side
	contextStart := max(1, lineNumbers[0]-1)
	contextEnd := min(maxLine, lineNumbers[len(lineNumbers)-1]+1)

	lineNumWidth := len(fmt.Sprintf("%d", contextEnd))
	gutter := strings.Repeat(" ", lineNumWidth)

	fmt.Fprintf(f.out, "  %s %s:%d:%d\n", f.paint(ansiBlue, "-->"), filename, spans[0].Span.Line, spans[0].Span.Column)
	fmt.Fprintf(f.out, " %s %s\n", gutter, f.paint(ansiBlue, "|"))

	for lineNum := contextStart; lineNum <= contextEnd; lineNum++ {
		lineContent := lines[lineNum-1]
		fmt.Fprintf(f.out, " %*d %s %s\n", lineNumWidth, lineNum, f.paint(ansiBlue, "|"), lineContent)

		if lineSpans := spansByLine[lineNum]; len(lineSpans) > 0 {
			f.printUnderlines(gutter, lineContent, lineSpans)
		}
	}

	fmt.Fprintf(f.out, " %s %s\n", gutter, f.paint(ansiBlue, "|"))
}

// printUnderlines prints ^ under primary spans and ~ under secondary ones.
// Columns are rune based; the underline is padded to the display width of
// the runes it skips so wide characters stay aligned.
func (f *Formatter) printUnderlines(gutter string, lineContent string, spans []LabeledSpan) {
	runes := []rune(lineContent)
	marks := make([]rune, len(runes)+1)
	for i := range marks {
		marks[i] = ' '
	}

	mark := func(span LabeledSpan, ch rune) {
		start := max(0, span.Span.Column-1)
		width := max(1, span.Span.End-span.Span.Start)
		for i := start; i < start+width && i < len(marks); i++ {
			if ch == '^' || marks[i] == ' ' {
				marks[i] = ch
			}
		}
	}
	for _, span := range spans {
		if span.Style == "primary" {
			mark(span, '^')
		}
	}
	for _, span := range spans {
		if span.Style == "secondary" {
			mark(span, '~')
		}
	}

	var sb strings.Builder
	last := -1
	for i, m := range marks {
		if m != ' ' {
			last = i
		}
	}
	if last < 0 {
		return
	}
	for i := 0; i <= last; i++ {
		w := 1
		if i < len(runes) {
			w = max(1, runewidth.RuneWidth(runes[i]))
		}
		sb.WriteString(strings.Repeat(string(marks[i]), w))
	}

	var labels []string
	for _, span := range spans {
		if span.Label != "" {
			labels = append(labels, span.Label)
		}
	}

	fmt.Fprintf(f.out, " %s %s %s", gutter, f.paint(ansiBlue, "|"), f.paint(ansiYellow, sb.String()))
	if len(labels) > 0 {
		fmt.Fprintf(f.out, " %s", strings.Join(labels, "; "))
	}
	fmt.Fprintln(f.out)
}

// printHelp prints notes, help text and related locations.
func (f *Formatter) printHelp(d Diagnostic) {
	for _, note := range d.Notes {
		fmt.Fprintf(f.out, "  = note: %s\n", note)
	}
	if d.Help != "" {
		fmt.Fprintf(f.out, "  = help: %s\n", d.Help)
	}
	for _, related := range d.Related {
		if related.IsValid() {
			fmt.Fprintf(f.out, "  = note: related location at %s\n", related.String())
		}
	}
}

// formatSimple formats a diagnostic without source code.
func (f *Formatter) formatSimple(d Diagnostic) {
	f.printHeader(d)
	if d.Span.IsValid() {
		fmt.Fprintf(f.out, "  --> %s\n", d.Span.String())
	}
	f.printHelp(d)
}
