package token

import "strings"

// Lookup resolves a macro name to its value.
type Lookup func(name string) (string, bool)

// maxExpandDepth bounds recursive expansion of macro values.
const maxExpandDepth = 8

// Expand replaces $(name) placeholders with values from lookup. Unknown names
// and function calls such as $(shell,...) are left as written.
func Expand(s string, lookup Lookup) string {
	if lookup == nil {
		return s
	}
	return expand(s, lookup, 0)
}

func expand(s string, lookup Lookup, depth int) string {
	if depth >= maxExpandDepth || !strings.Contains(s, "$(") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); {
		if s[i] != '$' || i+1 >= len(s) || s[i+1] != '(' {
			b.WriteByte(s[i])
			i++
			continue
		}
		end := placeholderEnd(s, i)
		if end < 0 {
			b.WriteString(s[i:])
			break
		}
		name := s[i+2 : end-1]
		if isName(name) {
			if v, ok := lookup(name); ok {
				b.WriteString(expand(v, lookup, depth+1))
				i = end
				continue
			}
		}
		b.WriteString(s[i:end])
		i = end
	}
	return b.String()
}

// HasPlaceholder reports whether s still holds a $( placeholder.
func HasPlaceholder(s string) bool {
	return strings.Contains(s, "$(")
}

func isName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isIdent(s[i]) {
			return false
		}
	}
	return true
}

// Identifiers lists the symbol names referenced by an expression in order of
// first appearance. Literals, the tristate constants y/m/n and names holding
// placeholders are skipped.
func Identifiers(expr string) []string {
	var names []string
	seen := make(map[string]struct{})
	for i := 0; i < len(expr); {
		ch := expr[i]
		switch {
		case ch == '"' || ch == '\'':
			_, next, err := quoted(At(expr, i))
			if err != nil {
				return names
			}
			i = next.Pos
		case isIdent(ch) || ch == '$':
			end, err := word(At(expr, i))
			if err != nil {
				return names
			}
			if end == i {
				i++
				continue
			}
			w := expr[i:end]
			i = end
			if !isSymbolName(w) {
				continue
			}
			if _, dup := seen[w]; !dup {
				seen[w] = struct{}{}
				names = append(names, w)
			}
		default:
			i++
		}
	}
	return names
}

func isSymbolName(w string) bool {
	switch w {
	case "y", "m", "n", "if":
		return false
	}
	if HasPlaceholder(w) || numberEnd(w, 0) == len(w) {
		return false
	}
	return true
}
