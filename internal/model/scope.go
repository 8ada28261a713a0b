package model

// ScopeKind discriminates the Scope variants.
type ScopeKind int

const (
	RootScope ScopeKind = iota
	MenuScope
	ChoiceScope
	IfScope
)

// Opener returns the keyword that opens a scope of kind k.
func (k ScopeKind) Opener() string {
	switch k {
	case MenuScope:
		return "menu"
	case ChoiceScope:
		return "choice"
	case IfScope:
		return "if"
	}
	return "file"
}

// Closer returns the keyword that terminates a scope of kind k, or "" for the root.
func (k ScopeKind) Closer() string {
	switch k {
	case MenuScope:
		return "endmenu"
	case ChoiceScope:
		return "endchoice"
	case IfScope:
		return "endif"
	}
	return ""
}

// Node is a child of a Scope: *Scope, *Declaration or *Comment.
type Node interface {
	NodeRange() Range
}

func (s *Scope) NodeRange() Range       { return s.Range }
func (d *Declaration) NodeRange() Range { return d.Range }
func (c *Comment) NodeRange() Range     { return LineRange(c.Line, c.Line) }

// Scope is a structural block. Label is the menu title, the if condition or
// the choice name. Visible applies to menus only, Optional and Symbol to
// choices only.
type Scope struct {
	Kind     ScopeKind
	Label    string
	Range    Range
	Parent   *Scope
	Children []Node

	Visible  string
	Optional bool
	Symbol   *Symbol
}

// Append adds a child node.
func (s *Scope) Append(n Node) {
	s.Children = append(s.Children, n)
}

// Close ends the scope at line.
func (s *Scope) Close(line int) {
	s.Range.End = Position{Line: line, Col: 1 << 30}
}

// Walk visits s and every node below it in order. Returning false from fn
// skips the children of a scope.
func (s *Scope) Walk(fn func(Node) bool) {
	if !fn(s) {
		return
	}
	for _, c := range s.Children {
		if sc, ok := c.(*Scope); ok {
			sc.Walk(fn)
			continue
		}
		fn(c)
	}
}

// Conditions lists the labels of the enclosing `if` blocks, innermost last.
func (s *Scope) Conditions() []string {
	var conds []string
	for sc := s; sc != nil; sc = sc.Parent {
		if sc.Kind == IfScope {
			conds = append([]string{sc.Label}, conds...)
		}
	}
	return conds
}
