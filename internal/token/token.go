// Package token extracts strings, symbols, numbers and expressions from the
// remainder of a Kconfig statement line.
//
// Every extractor is a pure function of a Cursor value and returns the token it
// found together with the cursor positioned after it. Expressions are not
// parsed into a tree: only their textual span is kept, and the scan rejects
// obviously malformed input (unbalanced parentheses, dangling operators).
package token

import (
	"fmt"
	"strings"
)

// Cursor is a read position inside one logical line.
type Cursor struct {
	Line string
	Pos  int
}

// At returns a cursor at pos in line.
func At(line string, pos int) Cursor {
	return Cursor{Line: line, Pos: pos}
}

// Skip returns c advanced past blanks.
func (c Cursor) Skip() Cursor {
	for c.Pos < len(c.Line) && isBlank(c.Line[c.Pos]) {
		c.Pos++
	}
	return c
}

// AtEnd reports whether only blanks remain.
func (c Cursor) AtEnd() bool {
	return c.Skip().Pos >= len(c.Line)
}

// Rest returns the unread text without surrounding blanks.
func (c Cursor) Rest() string {
	if c.Pos >= len(c.Line) {
		return ""
	}
	return strings.TrimSpace(c.Line[c.Pos:])
}

// Token is an extracted value. Start and End are offsets into the line; for
// strings Text holds the unquoted content.
type Token struct {
	Text  string
	Start int
	End   int
}

// SyntaxError is a malformed or missing token at a span of the line.
type SyntaxError struct {
	Msg   string
	Start int
	End   int
}

func (e *SyntaxError) Error() string {
	return e.Msg
}

func errorAt(c Cursor, end int, format string, args ...any) *SyntaxError {
	if end <= c.Pos {
		end = len(c.Line)
	}
	return &SyntaxError{Msg: fmt.Sprintf(format, args...), Start: c.Pos, End: end}
}

// String reads a quoted literal, or the first bare token when no quote starts
// the text.
func String(c Cursor) (Token, Cursor, error) {
	c = c.Skip()
	if c.Pos >= len(c.Line) {
		return Token{}, c, errorAt(c, 0, "expected string")
	}
	if q := c.Line[c.Pos]; q == '"' || q == '\'' {
		return quoted(c)
	}
	end := c.Pos
	for end < len(c.Line) && !isBlank(c.Line[end]) {
		end++
	}
	tok := Token{Text: c.Line[c.Pos:end], Start: c.Pos, End: end}
	return tok, Cursor{Line: c.Line, Pos: end}, nil
}

func quoted(c Cursor) (Token, Cursor, error) {
	q := c.Line[c.Pos]
	var b strings.Builder
	for i := c.Pos + 1; i < len(c.Line); i++ {
		ch := c.Line[i]
		switch {
		case ch == '\\' && i+1 < len(c.Line):
			i++
			b.WriteByte(c.Line[i])
		case ch == q:
			tok := Token{Text: b.String(), Start: c.Pos, End: i + 1}
			return tok, Cursor{Line: c.Line, Pos: i + 1}, nil
		default:
			b.WriteByte(ch)
		}
	}
	return Token{}, c, errorAt(c, 0, "unterminated string")
}

// Symbol reads an identifier, which may contain $(name) placeholders.
func Symbol(c Cursor) (Token, Cursor, error) {
	c = c.Skip()
	end, err := word(c)
	if err != nil {
		return Token{}, c, err
	}
	if end == c.Pos {
		return Token{}, c, errorAt(c, 0, "expected symbol name")
	}
	tok := Token{Text: c.Line[c.Pos:end], Start: c.Pos, End: end}
	return tok, Cursor{Line: c.Line, Pos: end}, nil
}

// Number reads a signed decimal or hexadecimal literal.
func Number(c Cursor) (Token, Cursor, error) {
	c = c.Skip()
	end := numberEnd(c.Line, c.Pos)
	if end < 0 {
		return Token{}, c, errorAt(c, wordEnd(c.Line, c.Pos), "expected number")
	}
	tok := Token{Text: c.Line[c.Pos:end], Start: c.Pos, End: end}
	return tok, Cursor{Line: c.Line, Pos: end}, nil
}

// numberEnd returns the end of a numeric literal at pos, or -1.
func numberEnd(s string, pos int) int {
	i := pos
	if i < len(s) && s[i] == '-' {
		i++
	}
	digits := i
	if i+1 < len(s) && s[i] == '0' && (s[i+1] == 'x' || s[i+1] == 'X') {
		i += 2
		digits = i
		for i < len(s) && isHex(s[i]) {
			i++
		}
	} else {
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
	}
	if i == digits || (i < len(s) && isIdent(s[i])) {
		return -1
	}
	return i
}

// Expression reads an expression span. The scan stops before a trailing
// `if` keyword, at the end of the line, or at the first token that cannot
// continue the expression.
func Expression(c Cursor) (Token, Cursor, error) {
	c = c.Skip()
	start := c.Pos
	end := start
	depth := 0
	operand := true
	var open []int

scan:
	for {
		c = c.Skip()
		if c.Pos >= len(c.Line) {
			break
		}
		ch := c.Line[c.Pos]
		if operand {
			switch {
			case ch == '!':
				c.Pos++
				continue
			case ch == '(':
				open = append(open, c.Pos)
				depth++
				c.Pos++
				continue
			case ch == '"' || ch == '\'':
				tok, next, err := quoted(c)
				if err != nil {
					return Token{}, c, err
				}
				c, end = next, tok.End
			case ch == '-' && numberEnd(c.Line, c.Pos) > 0:
				c.Pos = numberEnd(c.Line, c.Pos)
				end = c.Pos
			case isIdent(ch) || ch == '$':
				wend, err := word(c)
				if err != nil {
					return Token{}, c, err
				}
				if depth == 0 && c.Line[c.Pos:wend] == "if" {
					break scan
				}
				c.Pos = wend
				end = wend
			default:
				return Token{}, c, errorAt(c, c.Pos+1, "unexpected %q in expression", string(ch))
			}
			operand = false
			continue
		}

		switch op := operator(c.Line[c.Pos:]); {
		case ch == ')':
			if depth == 0 {
				return Token{}, c, errorAt(c, c.Pos+1, "unbalanced ')' in expression")
			}
			depth--
			open = open[:len(open)-1]
			c.Pos++
			end = c.Pos
		case op != "":
			c.Pos += len(op)
			operand = true
		default:
			break scan
		}
	}

	c.Pos = end
	switch {
	case end == start:
		return Token{}, c, errorAt(At(c.Line, start), 0, "expected expression")
	case operand:
		return Token{}, c, errorAt(At(c.Line, start), 0, "incomplete expression")
	case depth > 0:
		return Token{}, c, errorAt(At(c.Line, open[len(open)-1]), end, "unbalanced '(' in expression")
	}
	tok := Token{Text: strings.TrimSpace(c.Line[start:end]), Start: start, End: end}
	return tok, c, nil
}

// If reads an optional trailing `if <expr>`. It returns a nil token when the
// line has nothing left.
func If(c Cursor) (*Token, Cursor, error) {
	c = c.Skip()
	if c.Pos >= len(c.Line) {
		return nil, c, nil
	}
	rest := c.Line[c.Pos:]
	if !strings.HasPrefix(rest, "if") || (len(rest) > 2 && isIdent(rest[2])) {
		wend := wordEnd(c.Line, c.Pos)
		return nil, c, errorAt(c, wend, "unexpected %q", c.Line[c.Pos:wend])
	}
	after := Cursor{Line: c.Line, Pos: c.Pos + 2}
	if after.AtEnd() {
		return nil, c, errorAt(c, c.Pos+2, "missing condition after 'if'")
	}
	tok, next, err := Expression(after)
	if err != nil {
		return nil, next, err
	}
	return &tok, next, nil
}

// ExprIf reads `<expr> [if <condition>]`.
func ExprIf(c Cursor) (Token, *Token, Cursor, error) {
	expr, c, err := Expression(c)
	if err != nil {
		return Token{}, nil, c, err
	}
	cond, c, err := If(c)
	if err != nil {
		return expr, nil, c, err
	}
	return expr, cond, c, nil
}

// End fails when anything but blanks is left on the line.
func End(c Cursor) error {
	c = c.Skip()
	if c.Pos >= len(c.Line) {
		return nil
	}
	return errorAt(c, wordEnd(c.Line, c.Pos), "unexpected %q", c.Line[c.Pos:wordEnd(c.Line, c.Pos)])
}

// Text returns the condition text of an optional token.
func Text(t *Token) string {
	if t == nil {
		return ""
	}
	return t.Text
}

// word returns the end of an identifier run starting at c.Pos. Placeholders
// are consumed with balanced parentheses.
func word(c Cursor) (int, error) {
	s := c.Line
	i := c.Pos
	for i < len(s) {
		switch {
		case isIdent(s[i]):
			i++
		case s[i] == '$' && i+1 < len(s) && s[i+1] == '(':
			end := placeholderEnd(s, i)
			if end < 0 {
				return i, errorAt(At(s, i), 0, "unterminated macro placeholder")
			}
			i = end
		default:
			return i, nil
		}
	}
	return i, nil
}

// placeholderEnd returns the offset after the `)` closing the placeholder
// starting at pos, or -1.
func placeholderEnd(s string, pos int) int {
	depth := 0
	for i := pos + 1; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}

func wordEnd(s string, pos int) int {
	for pos < len(s) && !isBlank(s[pos]) {
		pos++
	}
	return pos
}

var operators = []string{"&&", "||", "!=", "<=", ">=", "=", "<", ">"}

func operator(s string) string {
	for _, op := range operators {
		if strings.HasPrefix(s, op) {
			return op
		}
	}
	return ""
}

func isBlank(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\r' || ch == '\f' || ch == '\v'
}

func isIdent(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}

func isHex(ch byte) bool {
	return (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}
