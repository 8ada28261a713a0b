package parse

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/phobologic/kconfigmap/internal/model"
	"github.com/phobologic/kconfigmap/internal/token"
)

type handler func(p *parser, l *logical, c token.Cursor)

var handlers map[string]handler

func init() {
	handlers = map[string]handler{
		"mainmenu":   (*parser).mainMenu,
		"config":     (*parser).config,
		"menuconfig": (*parser).config,
		"choice":     (*parser).choice,
		"menu":       (*parser).menu,
		"if":         (*parser).ifBlock,
		"endmenu":    (*parser).closer,
		"endchoice":  (*parser).closer,
		"endif":      (*parser).closer,
		"comment":    (*parser).comment,
		"source":     (*parser).source,
		"rsource":    (*parser).source,
		"osource":    (*parser).source,
		"orsource":   (*parser).source,

		"bool":         (*parser).typed,
		"tristate":     (*parser).typed,
		"string":       (*parser).typed,
		"hex":          (*parser).typed,
		"int":          (*parser).typed,
		"prompt":       (*parser).prompt,
		"default":      (*parser).defaultValue,
		"def_bool":     (*parser).typedDefault,
		"def_tristate": (*parser).typedDefault,
		"def_int":      (*parser).typedDefault,
		"def_hex":      (*parser).typedDefault,
		"def_string":   (*parser).typedDefault,
		"help":         (*parser).helpText,
		"depends":      (*parser).depends,
		"select":       (*parser).reverse,
		"imply":        (*parser).reverse,
		"range":        (*parser).valueRange,
		"option":       (*parser).option,

		"visible":  (*parser).visible,
		"optional": (*parser).optional,
	}
}

var (
	macroAssign = regexp.MustCompile(`^\s*([A-Za-z0-9_$()-]+)\s*(:=|\+=|\?=|=)\s*(.*?)\s*$`)
	keywordRe   = regexp.MustCompile(`^[a-z_]+`)
)

// statement classifies l by its leading keyword and dispatches it.
func (p *parser) statement(l *logical) {
	c := token.At(l.text, 0).Skip()
	kw := keywordRe.FindString(l.text[c.Pos:])
	after := p.after
	p.after = ""

	h, ok := handlers[kw]
	if ok && (c.Pos+len(kw) == len(l.text) || !isIdentByte(l.text[c.Pos+len(kw)])) {
		if kw == "depends" || kw == "visible" {
			p.after = after
		}
		h(p, l, token.At(l.text, c.Pos+len(kw)))
		return
	}

	rest := l.text[c.Pos:]
	if strings.HasPrefix(rest, "$(") {
		// Bare macro invocation such as $(warning-if,...).
		return
	}
	if m := macroAssign.FindStringSubmatch(l.text); m != nil {
		macro := model.Macro{Name: p.expand(m[1]), Op: m[2], Value: m[3], Line: l.start}
		if macro.Op != "=" {
			macro.Value = p.expand(macro.Value)
		}
		p.file.Macros = append(p.file.Macros, macro)
		assign(p.macros, macro, nil)
		return
	}
	word := rest
	if i := strings.IndexAny(word, " \t"); i >= 0 {
		word = word[:i]
	}
	p.report(model.Error, l.span(c.Pos, c.Pos+len(word)), fmt.Sprintf("invalid token %q", word), nil)
}

func (p *parser) mainMenu(l *logical, c token.Cursor) {
	title, c, err := token.String(c)
	if err != nil {
		p.syntax(l, err)
		return
	}
	if err := token.End(c); err != nil {
		p.syntax(l, err)
	}
	p.decl = nil
	p.stack[0].Label = p.expand(title.Text)
}

func (p *parser) config(l *logical, c token.Cursor) {
	kind := model.Config
	if p.keyword(l) == "menuconfig" {
		kind = model.MenuConfig
	}
	name, c, err := token.Symbol(c)
	if err != nil {
		p.decl = nil
		p.syntax(l, err)
		return
	}
	if err := token.End(c); err != nil {
		p.syntax(l, err)
	}
	sym := p.symbols.Symbol(p.expand(name.Text))
	d := &model.Declaration{
		Symbol: sym,
		File:   p.file,
		Parent: p.top(),
		Kind:   kind,
		Range:  l.lines(),
	}
	sym.Add(d)
	p.top().Append(d)
	p.file.Declarations = append(p.file.Declarations, d)
	p.decl = d
}

func (p *parser) choice(l *logical, c token.Cursor) {
	var label string
	if !c.AtEnd() {
		name, next, err := token.Symbol(c)
		if err != nil {
			p.syntax(l, err)
		} else {
			label = p.expand(name.Text)
			c = next
		}
	}
	if err := token.End(c); err != nil {
		p.syntax(l, err)
	}
	s := p.push(model.ChoiceScope, label, l)
	name := label
	if name == "" {
		name = p.choiceName(l)
	}
	sym := &model.Symbol{Name: name, Choice: true}
	d := &model.Declaration{
		Symbol: sym,
		File:   p.file,
		Parent: s,
		Kind:   model.ChoiceDecl,
		Range:  l.lines(),
	}
	sym.Add(d)
	s.Symbol = sym
	p.file.Declarations = append(p.file.Declarations, d)
	p.decl = d
}

func (p *parser) menu(l *logical, c token.Cursor) {
	title, c, err := token.String(c)
	if err != nil {
		p.syntax(l, err)
	} else if err := token.End(c); err != nil {
		p.syntax(l, err)
	}
	p.push(model.MenuScope, p.expand(title.Text), l)
	p.after = "menu"
}

func (p *parser) ifBlock(l *logical, c token.Cursor) {
	expr, c, err := token.Expression(c)
	if err != nil {
		p.syntax(l, err)
	} else if err := token.End(c); err != nil {
		p.syntax(l, err)
	}
	p.push(model.IfScope, expr.Text, l)
}

var closes = map[string]model.ScopeKind{
	"endmenu":   model.MenuScope,
	"endchoice": model.ChoiceScope,
	"endif":     model.IfScope,
}

func (p *parser) closer(l *logical, c token.Cursor) {
	kw := p.keyword(l)
	if err := token.End(c); err != nil {
		p.syntax(l, err)
	}
	p.decl = nil
	top := p.top()
	want := closes[kw]
	switch {
	case top.Kind == want:
		top.Close(l.end)
		p.stack = p.stack[:len(p.stack)-1]
	case top.Kind == model.RootScope:
		p.errorf(l, "%s without matching %s", kw, want.Opener())
	default:
		opener := model.LineRange(top.Range.Start.Line, top.Range.Start.Line)
		p.report(model.Error, l.lines(),
			fmt.Sprintf("%s does not match the open %s, expected %s", kw, top.Kind.Opener(), top.Kind.Closer()),
			&model.Related{Path: p.file.Path, Range: opener, Message: top.Kind.Opener() + " opened here"})
	}
}

func (p *parser) comment(l *logical, c token.Cursor) {
	text, c, err := token.String(c)
	if err != nil {
		p.syntax(l, err)
	} else if err := token.End(c); err != nil {
		p.syntax(l, err)
	}
	p.decl = nil
	cm := &model.Comment{Text: p.expand(text.Text), File: p.file, Line: l.start, Parent: p.top()}
	p.top().Append(cm)
	p.file.Comments = append(p.file.Comments, cm)
	p.after = "comment"
}

func (p *parser) source(l *logical, c token.Cursor) {
	kw := p.keyword(l)
	p.decl = nil
	path, c, err := token.String(c)
	if err != nil {
		p.syntax(l, err)
		return
	}
	if err := token.End(c); err != nil {
		p.syntax(l, err)
	}
	p.file.Inclusions = append(p.file.Inclusions, &model.Inclusion{
		Range:    l.span(path.Start, path.End),
		Path:     p.expand(path.Text),
		Relative: kw == "rsource" || kw == "orsource",
		Optional: kw == "osource" || kw == "orsource",
		Scope:    p.top(),
		Macros:   len(p.file.Macros),
	})
}

// entry returns the declaration receiving attributes, or reports kw as
// misplaced.
func (p *parser) entry(l *logical, kw string) *model.Declaration {
	if p.decl == nil {
		p.errorf(l, "%q is only valid inside a config entry", kw)
		return nil
	}
	p.decl.Extend(l.end)
	return p.decl
}

func (p *parser) keyword(l *logical) string {
	return keywordRe.FindString(strings.TrimSpace(l.text))
}

func (p *parser) setType(l *logical, d *model.Declaration, t model.Type) {
	if d.Type != model.Unset && d.Type != t {
		p.report(model.Warning, l.lines(), fmt.Sprintf("type changed from %s to %s", d.Type, t), nil)
	}
	d.Type = t
}

func (p *parser) setPrompt(l *logical, d *model.Declaration, text string, cond *token.Token) {
	if d.HasPrompt {
		p.report(model.Warning, l.lines(), "prompt redefined", nil)
	}
	d.HasPrompt = true
	d.Prompt = p.expand(text)
	d.PromptCond = token.Text(cond)
}

// typed handles `bool|tristate|string|hex|int ["prompt" [if expr]]`.
func (p *parser) typed(l *logical, c token.Cursor) {
	kw := p.keyword(l)
	d := p.entry(l, kw)
	if d == nil {
		return
	}
	p.setType(l, d, model.Type(kw))
	if c.AtEnd() {
		return
	}
	p.promptArgs(l, d, c)
}

func (p *parser) prompt(l *logical, c token.Cursor) {
	d := p.entry(l, "prompt")
	if d == nil {
		return
	}
	p.promptArgs(l, d, c)
}

func (p *parser) promptArgs(l *logical, d *model.Declaration, c token.Cursor) {
	text, c, err := token.String(c)
	if err != nil {
		p.syntax(l, err)
		return
	}
	cond, c, err := token.If(c)
	if err != nil {
		p.syntax(l, err)
		return
	}
	if err := token.End(c); err != nil {
		p.syntax(l, err)
		return
	}
	p.setPrompt(l, d, text.Text, cond)
}

func (p *parser) defaultValue(l *logical, c token.Cursor) {
	d := p.entry(l, "default")
	if d == nil {
		return
	}
	if def, ok := p.exprIf(l, c); ok {
		d.Defaults = append(d.Defaults, model.Default{Value: def.Expr, Cond: def.Cond})
	}
}

// typedDefault handles `def_<type> <expr> [if expr]`.
func (p *parser) typedDefault(l *logical, c token.Cursor) {
	kw := p.keyword(l)
	d := p.entry(l, kw)
	if d == nil {
		return
	}
	p.setType(l, d, model.Type(strings.TrimPrefix(kw, "def_")))
	if def, ok := p.exprIf(l, c); ok {
		d.Defaults = append(d.Defaults, model.Default{Value: def.Expr, Cond: def.Cond})
	}
}

func (p *parser) exprIf(l *logical, c token.Cursor) (model.Dependency, bool) {
	expr, cond, c, err := token.ExprIf(c)
	if err == nil {
		err = token.End(c)
	}
	if err != nil {
		p.syntax(l, err)
		return model.Dependency{}, false
	}
	return model.Dependency{Expr: expr.Text, Cond: token.Text(cond)}, true
}

func (p *parser) helpText(l *logical, c token.Cursor) {
	if err := token.End(c); err != nil {
		p.syntax(l, err)
	}
	d := p.entry(l, "help")
	if d != nil && d.Help != "" {
		p.report(model.Warning, l.lines(), "help text redefined", nil)
	}
	// Help text is captured even without an entry so it is not parsed as
	// statements.
	p.help = &helpState{decl: d, indent: -1}
}

func (p *parser) depends(l *logical, c token.Cursor) {
	on := c.Skip()
	if !strings.HasPrefix(on.Line[on.Pos:], "on") || (on.Pos+2 < len(on.Line) && isIdentByte(on.Line[on.Pos+2])) {
		p.report(model.Error, l.lines(), "expected 'on' after 'depends'", nil)
		return
	}
	c = token.At(on.Line, on.Pos+2)
	if p.decl == nil && p.after != "" {
		p.report(model.Info, l.lines(), fmt.Sprintf("dependencies of a %s are not tracked", p.after), nil)
		p.exprIf(l, c)
		return
	}
	p.after = ""
	d := p.entry(l, "depends on")
	if d == nil {
		return
	}
	if dep, ok := p.exprIf(l, c); ok {
		d.Dependencies = append(d.Dependencies, dep)
	}
}

// reverse handles `select` and `imply`.
func (p *parser) reverse(l *logical, c token.Cursor) {
	kw := p.keyword(l)
	d := p.entry(l, kw)
	if d == nil {
		return
	}
	target, c, err := token.Symbol(c)
	if err != nil {
		p.syntax(l, err)
		return
	}
	cond, c, err := token.If(c)
	if err == nil {
		err = token.End(c)
	}
	if err != nil {
		p.syntax(l, err)
		return
	}
	r := model.Reverse{Target: p.expand(target.Text), Cond: token.Text(cond)}
	if kw == "select" {
		d.Selects = append(d.Selects, r)
	} else {
		d.Implies = append(d.Implies, r)
	}
}

func (p *parser) valueRange(l *logical, c token.Cursor) {
	d := p.entry(l, "range")
	if d == nil {
		return
	}
	lo, c, err := bound(c)
	if err != nil {
		p.syntax(l, err)
		return
	}
	hi, c, err := bound(c)
	if err != nil {
		p.syntax(l, err)
		return
	}
	cond, c, err := token.If(c)
	if err == nil {
		err = token.End(c)
	}
	if err != nil {
		p.syntax(l, err)
		return
	}
	d.Ranges = append(d.Ranges, model.ValueRange{Min: lo.Text, Max: hi.Text, Cond: token.Text(cond)})
}

// bound reads a range limit: a number or a symbol.
func bound(c token.Cursor) (token.Token, token.Cursor, error) {
	if tok, next, err := token.Number(c); err == nil {
		return tok, next, nil
	}
	return token.Symbol(c)
}

// option handles `option name[="value"]`.
func (p *parser) option(l *logical, c token.Cursor) {
	d := p.entry(l, "option")
	if d == nil {
		return
	}
	name, c, err := token.Symbol(c)
	if err != nil {
		p.syntax(l, err)
		return
	}
	opt := name.Text
	if c.Pos < len(c.Line) && c.Line[c.Pos] == '=' {
		value, next, err := token.String(token.At(c.Line, c.Pos+1))
		if err != nil {
			p.syntax(l, err)
			return
		}
		opt += "=" + value.Text
		c = next
	}
	if err := token.End(c); err != nil {
		p.syntax(l, err)
		return
	}
	d.Options = append(d.Options, opt)
}

func (p *parser) visible(l *logical, c token.Cursor) {
	cond, c, err := token.If(c)
	if err == nil && cond == nil {
		err = errors.New("expected 'if' after 'visible'")
	}
	if err == nil {
		err = token.End(c)
	}
	if err != nil {
		p.syntax(l, err)
		return
	}
	top := p.top()
	if top.Kind != model.MenuScope {
		p.errorf(l, "'visible if' is only valid inside a menu")
		return
	}
	top.Visible = cond.Text
	p.decl = nil
}

func (p *parser) optional(l *logical, c token.Cursor) {
	if err := token.End(c); err != nil {
		p.syntax(l, err)
	}
	top := p.top()
	if top.Kind != model.ChoiceScope {
		p.errorf(l, "'optional' is only valid inside a choice")
		return
	}
	top.Optional = true
}

func isIdentByte(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}
