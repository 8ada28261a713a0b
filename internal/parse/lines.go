package parse

import (
	"strings"

	"github.com/phobologic/kconfigmap/internal/model"
)

const tabWidth = 8

// logical is one statement after comment stripping and backslash joining.
type logical struct {
	text  string
	start int
	end   int
	segs  []segment
}

// segment maps the text of one physical line into the logical text.
type segment struct {
	off  int
	line int
}

func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	if n := len(lines); n > 1 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}

// join builds the logical line starting at physical line i and returns it
// with the index of the next unread line.
func join(lines []string, i int) (*logical, int) {
	l := &logical{start: i, end: i}
	for {
		body := stripComment(lines[i])
		trimmed := strings.TrimRight(body, " \t")
		l.segs = append(l.segs, segment{off: len(l.text), line: i})
		if !strings.HasSuffix(trimmed, "\\") || i+1 >= len(lines) {
			l.text += strings.TrimSuffix(trimmed, "\\")
			l.end = i
			return l, i + 1
		}
		l.text += trimmed[:len(trimmed)-1]
		i++
	}
}

// position maps an offset of the logical text back to the file.
func (l *logical) position(off int) model.Position {
	seg := l.segs[0]
	for _, s := range l.segs[1:] {
		if off >= s.off {
			seg = s
		}
	}
	return model.Position{Line: seg.line, Col: off - seg.off}
}

func (l *logical) span(start, end int) model.Range {
	if end < start {
		end = start
	}
	return model.Range{Start: l.position(start), End: l.position(end)}
}

// lines returns a range covering the whole statement.
func (l *logical) lines() model.Range {
	return model.Range{
		Start: model.Position{Line: l.start, Col: l.indentCol()},
		End:   l.position(len(l.text)),
	}
}

func (l *logical) indentCol() int {
	return len(l.text) - len(strings.TrimLeft(l.text, " \t"))
}

// stripComment cuts a `#` comment that is not inside quotes.
func stripComment(s string) string {
	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0 && ch == '\\':
			i++
		case quote != 0 && ch == quote:
			quote = 0
		case quote != 0:
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == '#':
			return s[:i]
		}
	}
	return s
}

func indentOf(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ':
			n++
		case '\t':
			n += tabWidth - n%tabWidth
		default:
			return n
		}
	}
	return n
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
