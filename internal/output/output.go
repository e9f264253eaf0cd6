// Package output provides consistent CLI output formatting for answers,
// documents and status messages.
package output

import (
	"fmt"
	"io"
	"strings"
)

// snippetLimit bounds how much document content is shown per result.
const snippetLimit = 200

// Writer provides formatted output for CLI.
type Writer struct {
	out io.Writer
}

// New creates a new output Writer.
func New(out io.Writer) *Writer {
	return &Writer{out: out}
}

// Status prints a status message with an icon.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	w.Status(icon, msg)
}

// Success prints a success message with checkmark.
func (w *Writer) Success(msg string) {
	w.Status("✅", msg)
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status("⚠️ ", msg)
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Status("❌", msg)
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Section prints a titled section header with an underline.
func (w *Writer) Section(title string) {
	_, _ = fmt.Fprintf(w.out, "\n%s\n%s\n", title, strings.Repeat("─", len([]rune(title))))
}

// Answer prints the synthesized answer text under its own section.
func (w *Writer) Answer(text string) {
	w.Section("Answer")
	_, _ = fmt.Fprintf(w.out, "%s\n", strings.TrimSpace(text))
}

// Document prints one ranked source with its position, location and a
// content snippet.
func (w *Writer) Document(position int, title, location, snippet string, score float64) {
	if title == "" {
		title = location
	}
	_, _ = fmt.Fprintf(w.out, "\n%d. %s (%.2f)\n", position, title, score)
	if location != "" && location != title {
		_, _ = fmt.Fprintf(w.out, "   %s\n", location)
	}
	if snippet = trimSnippet(snippet); snippet != "" {
		_, _ = fmt.Fprintf(w.out, "   %s\n", snippet)
	}
}

// Code prints a code block with indentation.
func (w *Writer) Code(content string) {
	_, _ = fmt.Fprintln(w.out)
	// Indent each line
	lines := strings.Split(content, "\n")
	for _, line := range lines {
		_, _ = fmt.Fprintf(w.out, "  %s\n", line)
	}
	_, _ = fmt.Fprintln(w.out)
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// Progress prints a progress bar with message.
func (w *Writer) Progress(current, total int, msg string) {
	if total <= 0 {
		return
	}

	pct := float64(current) / float64(total) * 100
	bar := renderProgressBar(current, total, 30)

	// Use carriage return for in-place updates
	_, _ = fmt.Fprintf(w.out, "\r[%s] %.0f%% %s", bar, pct, msg)

	// Add newline when complete
	if current >= total {
		_, _ = fmt.Fprintln(w.out)
	}
}

// ProgressDone completes a progress line with newline.
func (w *Writer) ProgressDone() {
	_, _ = fmt.Fprintln(w.out)
}

// trimSnippet collapses whitespace and truncates to the snippet limit.
func trimSnippet(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= snippetLimit {
		return s
	}
	cut := strings.LastIndex(s[:snippetLimit], " ")
	if cut <= 0 {
		cut = snippetLimit
	}
	return s[:cut] + "..."
}

// renderProgressBar creates a text progress bar.
func renderProgressBar(current, total, width int) string {
	if total <= 0 {
		return strings.Repeat("░", width)
	}

	pct := float64(current) / float64(total)
	filled := int(pct * float64(width))

	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
