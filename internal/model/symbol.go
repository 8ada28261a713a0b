package model

import "strings"

// EntryKind tells which statement opened a declaration.
type EntryKind string

const (
	Config     EntryKind = "config"
	MenuConfig EntryKind = "menuconfig"
	ChoiceDecl EntryKind = "choice"
)

// Declaration is one textual occurrence of a symbol's attributes in one file.
type Declaration struct {
	Symbol *Symbol
	File   *File
	Parent *Scope
	Kind   EntryKind
	Range  Range

	Type         Type
	Prompt       string
	PromptCond   string
	HasPrompt    bool
	Help         string
	Defaults     []Default
	Ranges       []ValueRange
	Selects      []Reverse
	Implies      []Reverse
	Dependencies []Dependency
	Options      []string
}

// Extend grows the declaration to cover line. The range never shrinks.
func (d *Declaration) Extend(line int) {
	if line > d.Range.End.Line {
		d.Range.End = Position{Line: line, Col: 1 << 30}
	}
}

// Line returns the line of the opening statement.
func (d *Declaration) Line() int {
	return d.Range.Start.Line
}

// Symbol is a configuration variable aggregated over all its declarations.
// Declarations are kept in file order.
type Symbol struct {
	Name         string
	Choice       bool
	Declarations []*Declaration
}

// Add appends a declaration.
func (s *Symbol) Add(d *Declaration) {
	s.Declarations = append(s.Declarations, d)
}

// Remove drops d and reports whether it was present.
func (s *Symbol) Remove(d *Declaration) bool {
	for i, x := range s.Declarations {
		if x == d {
			s.Declarations = append(s.Declarations[:i], s.Declarations[i+1:]...)
			return true
		}
	}
	return false
}

// Type is the first type set by any declaration.
func (s *Symbol) Type() Type {
	for _, d := range s.Declarations {
		if d.Type != Unset {
			return d.Type
		}
	}
	return Unset
}

// Prompt is the first prompt given by any declaration.
func (s *Symbol) Prompt() string {
	for _, d := range s.Declarations {
		if d.HasPrompt {
			return d.Prompt
		}
	}
	return ""
}

// Help joins the help texts of all declarations in file order.
func (s *Symbol) Help() string {
	var parts []string
	for _, d := range s.Declarations {
		if d.Help != "" {
			parts = append(parts, d.Help)
		}
	}
	return strings.Join(parts, "\n\n")
}

func (s *Symbol) Defaults() []Default {
	var out []Default
	for _, d := range s.Declarations {
		out = append(out, d.Defaults...)
	}
	return out
}

func (s *Symbol) Ranges() []ValueRange {
	var out []ValueRange
	for _, d := range s.Declarations {
		out = append(out, d.Ranges...)
	}
	return out
}

func (s *Symbol) Dependencies() []Dependency {
	var out []Dependency
	for _, d := range s.Declarations {
		out = append(out, d.Dependencies...)
	}
	return out
}

func (s *Symbol) Selects() []Reverse {
	var out []Reverse
	for _, d := range s.Declarations {
		out = append(out, d.Selects...)
	}
	return out
}

func (s *Symbol) Implies() []Reverse {
	var out []Reverse
	for _, d := range s.Declarations {
		out = append(out, d.Implies...)
	}
	return out
}
