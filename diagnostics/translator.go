package diagnostics

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"pagemill/model"
)

var frameRe = regexp.MustCompile(`^\s*at .+ \((.+):(\d+):(\d+)\)\s*$`)

// Translator turns an arbitrary render failure into a positionally-accurate
// Diagnostic. Every parse step degrades rather than raising: an unreadable
// stack or source file yields an empty filename and zero line/column.
type Translator struct {
	Root string
	// StripSegments is the number of leading path segments added by the
	// wrapping layer in the renderer bundle; they are dropped before joining
	// the remainder onto Root.
	StripSegments int
	ContextLines  int
	Palette       Palette
}

func NewTranslator(root string, stripSegments, contextLines int, palette Palette) *Translator {
	if contextLines <= 0 {
		contextLines = 5
	}
	return &Translator{
		Root:          root,
		StripSegments: stripSegments,
		ContextLines:  contextLines,
		Palette:       palette,
	}
}

// Translate builds a Diagnostic from err. A *model.WorkerError contributes
// its stack, type and message; any other error contributes its message only.
func (t *Translator) Translate(err error) model.Diagnostic {
	d := model.Diagnostic{
		Message: lastLine(err.Error()),
		Type:    "Error",
	}

	stack := err.Error()
	if we, ok := err.(*model.WorkerError); ok {
		if we.Stack != "" {
			stack = we.Stack
		}
		if we.Type != "" {
			d.Type = we.Type
		}
		d.Message = lastLine(we.Message)
	}
	d.Stack = stack

	file, line, col, ok := parseStack(stack)
	if !ok {
		return d
	}

	filename := t.resolveFile(file)
	if filename == "" {
		return d
	}
	frame, ferr := t.codeFrame(filename, line, col)
	if ferr != nil {
		// Unreadable source is a parse failure too: keep the message but
		// drop the positional claims.
		return d
	}

	d.Filename = filename
	d.Line = line
	d.Column = col
	d.CodeFrame = frame
	return d
}

// lastLine returns the final line of a possibly multi-line failure message.
// Renderer exceptions with multi-line bodies only surface their last line.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	return lines[len(lines)-1]
}

// parseStack finds the first "at fn (file:line:col)" frame in stack, falling
// back to the first raw line when no frame matches.
func parseStack(stack string) (string, int, int, bool) {
	lines := strings.Split(stack, "\n")
	for _, l := range lines {
		if m := frameRe.FindStringSubmatch(l); m != nil {
			line, _ := strconv.Atoi(m[2])
			col, _ := strconv.Atoi(m[3])
			return m[1], line, col, true
		}
	}
	if len(lines) > 0 {
		return parseLocation(lines[0])
	}
	return "", 0, 0, false
}

// parseLocation splits loc on ":" and treats the two rightmost numeric
// segments as line and column.
func parseLocation(loc string) (string, int, int, bool) {
	parts := strings.Split(strings.TrimSpace(loc), ":")
	if len(parts) < 3 {
		return "", 0, 0, false
	}
	line, err1 := strconv.Atoi(parts[len(parts)-2])
	col, err2 := strconv.Atoi(parts[len(parts)-1])
	if err1 != nil || err2 != nil {
		return "", 0, 0, false
	}
	return strings.Join(parts[:len(parts)-2], ":"), line, col, true
}

// resolveFile rebuilds an absolute source filename from a stack-trace path
// by dropping the wrapping layer's leading segments and joining the rest
// onto the project root.
func (t *Translator) resolveFile(file string) string {
	if file == "" {
		return ""
	}
	segs := strings.Split(strings.TrimPrefix(file, "/"), "/")
	if len(segs) <= t.StripSegments {
		return ""
	}
	rest := segs[t.StripSegments:]
	return filepath.Join(append([]string{t.Root}, rest...)...)
}

// codeFrame renders a colorized excerpt of file centered on line, with a
// caret under col.
func (t *Translator) codeFrame(file string, line, col int) (string, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return "", err
	}
	src := strings.Split(string(data), "\n")
	if line < 1 || line > len(src) {
		return "", fmt.Errorf("line %d outside %s", line, file)
	}

	start := line - t.ContextLines
	if start < 1 {
		start = 1
	}
	end := line + t.ContextLines
	if end > len(src) {
		end = len(src)
	}

	width := len(strconv.Itoa(end))
	var b strings.Builder
	for n := start; n <= end; n++ {
		gutter := t.Palette.Gutter.Sprintf("%*d |", width, n)
		if n == line {
			b.WriteString(t.Palette.Marker.Sprint("> "))
			b.WriteString(gutter)
			b.WriteString(" ")
			b.WriteString(t.Palette.BadLine.Sprint(src[n-1]))
			b.WriteString("\n")
			if col > 0 {
				b.WriteString("  ")
				b.WriteString(t.Palette.Gutter.Sprintf("%*s |", width, ""))
				b.WriteString(" ")
				b.WriteString(t.Palette.Caret.Sprint(strings.Repeat(" ", col-1) + "^"))
				b.WriteString("\n")
			}
			continue
		}
		fmt.Fprintf(&b, "  %s %s\n", gutter, src[n-1])
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
