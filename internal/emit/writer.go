package emit

import (
	"fmt"
	"strings"
)

// Writer accumulates generated source with indentation.
type Writer struct {
	b      strings.Builder
	unit   string
	indent int
}

// NewWriter returns a writer indenting by unit ("\t", "    ").
func NewWriter(unit string) *Writer {
	return &Writer{unit: unit}
}

// Line writes s on its own line at the current indentation.
func (w *Writer) Line(s string) {
	if s != "" {
		for range w.indent {
			w.b.WriteString(w.unit)
		}
		w.b.WriteString(s)
	}
	w.b.WriteByte('\n')
}

// Linef is Line with formatting.
func (w *Writer) Linef(format string, args ...any) {
	w.Line(fmt.Sprintf(format, args...))
}

// Blank writes an empty line.
func (w *Writer) Blank() { w.b.WriteByte('\n') }

// Open writes a line and indents the following ones.
func (w *Writer) Open(format string, args ...any) {
	w.Linef(format, args...)
	w.indent++
}

// Close dedents and writes a line.
func (w *Writer) Close(s string) {
	w.Dedent()
	w.Line(s)
}

func (w *Writer) Indent() { w.indent++ }

func (w *Writer) Dedent() {
	if w.indent > 0 {
		w.indent--
	}
}

// Comment writes doc one line at a time behind prefix ("// ", "# ",
// "/// "). Empty docs write nothing.
func (w *Writer) Comment(prefix, doc string) {
	doc = strings.TrimSpace(doc)
	if doc == "" {
		return
	}
	for _, l := range strings.Split(doc, "\n") {
		w.Line(strings.TrimRight(prefix+strings.TrimSpace(l), " "))
	}
}

// Raw appends text without indentation.
func (w *Writer) Raw(s string) { w.b.WriteString(s) }

func (w *Writer) Len() int { return w.b.Len() }

func (w *Writer) String() string { return w.b.String() }

// Bytes returns the content with a single trailing newline.
func (w *Writer) Bytes() []byte {
	return []byte(strings.TrimRight(w.b.String(), "\n") + "\n")
}
