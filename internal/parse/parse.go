// Package parse turns the text of one Kconfig file into a scope tree, a
// declaration list, an inclusion list and diagnostics.
//
// The parser is line oriented. Each logical line is classified by its leading
// keyword and handed to a statement handler that updates the parser state: a
// stack of open scopes, the declaration currently receiving attributes, and
// help-text capture. Malformed input never stops the pass; every problem is
// recorded as a diagnostic and parsing resumes on the next line.
package parse

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/phobologic/kconfigmap/internal/model"
	"github.com/phobologic/kconfigmap/internal/token"
)

// SymbolTable hands out the Symbol for a name, creating it on first use.
type SymbolTable interface {
	Symbol(name string) *model.Symbol
}

// Options configures a parse.
type Options struct {
	// Symbols receives config entries. A private table is used when nil.
	Symbols SymbolTable
	// Lookup resolves $(name) placeholders not defined in the file itself.
	Lookup token.Lookup
	// Logger receives debug output. Pass nil to disable logging.
	Logger *slog.Logger
}

// Table is a plain name to Symbol map implementing SymbolTable.
type Table map[string]*model.Symbol

// Symbol returns the symbol for name, creating it when missing.
func (t Table) Symbol(name string) *model.Symbol {
	if s, ok := t[name]; ok {
		return s
	}
	s := &model.Symbol{Name: name}
	t[name] = s
	return s
}

// parser is the state threaded through the line loop.
type parser struct {
	file    *model.File
	symbols SymbolTable
	lookup  token.Lookup
	log     *slog.Logger

	stack []*model.Scope
	decl  *model.Declaration
	// after names the last statement when it was a menu or comment, whose
	// trailing `depends on` lines are accepted but not tracked.
	after  string
	help   *helpState
	macros map[string]string
}

type helpState struct {
	decl   *model.Declaration
	indent int
	paras  []string
	cur    []string
}

// Text parses text into f, discarding the results of any earlier parse.
func Text(f *model.File, text string, opts Options) {
	f.Reset()
	p := &parser{
		file:    f,
		symbols: opts.Symbols,
		log:     opts.Logger,
		macros:  make(map[string]string),
	}
	if p.symbols == nil {
		p.symbols = make(Table)
	}
	if p.log == nil {
		p.log = slog.New(slog.DiscardHandler)
	}
	p.lookup = func(name string) (string, bool) {
		if v, ok := p.macros[name]; ok {
			return v, true
		}
		if opts.Lookup != nil {
			return opts.Lookup(name)
		}
		return "", false
	}

	lines := splitLines(text)
	root := &model.Scope{Kind: model.RootScope, Range: model.LineRange(0, max(len(lines)-1, 0))}
	f.Root = root
	p.stack = []*model.Scope{root}

	for i := 0; i < len(lines); {
		if p.help != nil && p.helpLine(i, lines[i]) {
			i++
			continue
		}
		if isBlank(lines[i]) {
			i++
			continue
		}
		l, next := join(lines, i)
		i = next
		if strings.TrimSpace(l.text) == "" {
			continue
		}
		p.statement(l)
	}
	p.finish(len(lines) - 1)
	f.Parsed = true

	p.log.Debug("parsed file",
		slog.String("path", f.Path),
		slog.Int("declarations", len(f.Declarations)),
		slog.Int("inclusions", len(f.Inclusions)),
		slog.Int("diagnostics", len(f.Diagnostics)))
}

// MacroLookup returns a lookup that resolves the given assignments before
// falling back to parent. An included file sees the macros its includer
// assigned ahead of the source directive.
func MacroLookup(macros []model.Macro, parent token.Lookup) token.Lookup {
	if len(macros) == 0 {
		return parent
	}
	defs := make(map[string]string)
	for _, m := range macros {
		assign(defs, m, parent)
	}
	return func(name string) (string, bool) {
		if v, ok := defs[name]; ok {
			return v, true
		}
		if parent != nil {
			return parent(name)
		}
		return "", false
	}
}

func assign(defs map[string]string, m model.Macro, parent token.Lookup) {
	switch m.Op {
	case "+=":
		if v, ok := defs[m.Name]; ok && v != "" {
			defs[m.Name] = v + " " + m.Value
			return
		}
	case "?=":
		if _, ok := defs[m.Name]; ok {
			return
		}
		if parent != nil {
			if _, ok := parent(m.Name); ok {
				return
			}
		}
	}
	defs[m.Name] = m.Value
}

func (p *parser) top() *model.Scope {
	return p.stack[len(p.stack)-1]
}

func (p *parser) push(kind model.ScopeKind, label string, l *logical) *model.Scope {
	top := p.top()
	s := &model.Scope{Kind: kind, Label: label, Range: l.lines(), Parent: top}
	top.Append(s)
	p.stack = append(p.stack, s)
	p.decl = nil
	return s
}

func (p *parser) finish(last int) {
	if last < 0 {
		last = 0
	}
	p.endHelp()
	for len(p.stack) > 1 {
		s := p.top()
		p.report(model.Error, model.LineRange(s.Range.Start.Line, s.Range.Start.Line),
			fmt.Sprintf("unterminated %s: missing %s", s.Kind.Opener(), s.Kind.Closer()), nil)
		s.Close(last)
		p.stack = p.stack[:len(p.stack)-1]
	}
	p.stack[0].Close(last)
}

// helpLine consumes line i as help text and reports whether it did. A line
// indented less than the first help line ends the help block. A first help
// line without indentation means the help text is empty.
func (p *parser) helpLine(i int, raw string) bool {
	h := p.help
	if isBlank(raw) {
		if len(h.cur) > 0 {
			h.paras = append(h.paras, strings.Join(h.cur, " "))
			h.cur = nil
		}
		return true
	}
	ind := indentOf(raw)
	if h.indent < 0 {
		if ind == 0 {
			p.endHelp()
			return false
		}
		h.indent = ind
	}
	if ind < h.indent {
		p.endHelp()
		return false
	}
	h.cur = append(h.cur, strings.TrimSpace(raw))
	if h.decl != nil {
		h.decl.Extend(i)
	}
	return true
}

func (p *parser) endHelp() {
	h := p.help
	if h == nil {
		return
	}
	p.help = nil
	if len(h.cur) > 0 {
		h.paras = append(h.paras, strings.Join(h.cur, " "))
	}
	if h.decl != nil {
		h.decl.Help = strings.Join(h.paras, "\n\n")
	}
}

func (p *parser) report(sev model.Severity, rng model.Range, msg string, related *model.Related) {
	p.file.Diagnostics = append(p.file.Diagnostics, model.Diagnostic{
		Range:    rng,
		Message:  msg,
		Severity: sev,
		Related:  related,
	})
}

// syntax reports err, which is usually a *token.SyntaxError locating the
// problem inside l.
func (p *parser) syntax(l *logical, err error) {
	var se *token.SyntaxError
	if errors.As(err, &se) {
		p.report(model.Error, l.span(se.Start, se.End), se.Msg, nil)
		return
	}
	p.report(model.Error, l.lines(), err.Error(), nil)
}

func (p *parser) errorf(l *logical, format string, args ...any) {
	p.report(model.Error, l.lines(), fmt.Sprintf(format, args...), nil)
}

func (p *parser) expand(s string) string {
	return token.Expand(s, p.lookup)
}

func (p *parser) choiceName(l *logical) string {
	return fmt.Sprintf("<choice %s:%d>", filepath.Base(p.file.Path), l.start+1)
}
