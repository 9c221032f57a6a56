package errors

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// ANSI color codes for terminal output.
const (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorCyan  = "\033[36m"
	colorWhite = "\033[37m"
	colorGray  = "\033[90m"
	colorBold  = "\033[1m"
)

var colorEnabled = true

// DisableColors disables ANSI color output.
func DisableColors() {
	colorEnabled = false
}

// EnableColors enables ANSI color output.
func EnableColors() {
	colorEnabled = true
}

func color(code, text string) string {
	if !colorEnabled {
		return text
	}
	return code + text + colorReset
}

func red(text string) string   { return color(colorRed, text) }
func cyan(text string) string  { return color(colorCyan, text) }
func white(text string) string { return color(colorWhite, text) }
func gray(text string) string  { return color(colorGray, text) }
func bold(text string) string  { return color(colorBold, text) }

// Format renders the error for terminal display.
func (e *Error) Format() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(red(bold("ERROR ")))
	if e.Code != "" {
		b.WriteString(white(bold(e.Code + ": ")))
	}
	b.WriteString(white(e.Message))
	b.WriteString("\n\n")

	if e.Location != nil {
		b.WriteString("  ")
		b.WriteString(cyan(e.Location.String()))
		b.WriteString("\n\n")

		first := e.Location.Line - len(e.Context)/2
		for i, line := range e.Context {
			n := first + i
			marker := "    "
			if n == e.Location.Line {
				marker = "  " + red("→ ")
			}
			fmt.Fprintf(&b, "%s%4d%s%s\n", marker, n, gray(" │ "), line)
		}
		if len(e.Context) > 0 {
			b.WriteString("\n")
		}
	}

	if e.Detail != "" {
		for _, line := range wrapText(e.Detail, 70) {
			b.WriteString("  ")
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if e.Wrapped != nil {
		b.WriteString("  ")
		b.WriteString(gray("Cause: "))
		b.WriteString(e.Wrapped.Error())
		b.WriteString("\n\n")
	}

	if e.Suggestion != "" {
		b.WriteString("  ")
		b.WriteString(cyan("Hint: "))
		b.WriteString(e.Suggestion)
		b.WriteString("\n\n")
	}

	return b.String()
}

// FormatCompact returns a single-line rendering.
func (e *Error) FormatCompact() string {
	var b strings.Builder
	if e.Location != nil {
		b.WriteString(e.Location.String())
		b.WriteString(": ")
	}
	b.WriteString(e.Error())
	return b.String()
}

// Body is the JSON shape of an error sent to HTTP clients.
type Body struct {
	Code      string `json:"code,omitempty"`
	Message   string `json:"message"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// Body returns the client-facing fields of the error. Wrapped causes are
// left out.
func (e *Error) Body(requestID string) Body {
	return Body{
		Code:      e.Code,
		Message:   e.Message,
		Detail:    e.Detail,
		RequestID: requestID,
	}
}

// MarshalJSON encodes the error as {"error": Body}.
func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Error Body `json:"error"`
	}{e.Body("")})
}

// wrapText wraps text to the specified width.
func wrapText(text string, width int) []string {
	if text == "" {
		return nil
	}
	if len(text) <= width {
		return []string{text}
	}

	var lines []string
	var current strings.Builder
	for _, word := range strings.Fields(text) {
		if current.Len() > 0 && current.Len()+len(word)+1 > width {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}

// Fprint writes err to w, formatted when it is an *Error.
func Fprint(w io.Writer, err error) {
	if err == nil {
		return
	}
	if e := FromError(err, ""); e != nil && e.Code != "" {
		fmt.Fprint(w, e.Format())
		return
	}
	fmt.Fprintf(w, "\n%s %s\n\n", red(bold("ERROR:")), err.Error())
}
