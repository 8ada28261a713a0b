// Package model defines core data structures for kconfigmap.
package model

import "fmt"

// Position is a zero-based line/column location in a file.
type Position struct {
	Line int
	Col  int
}

// Range is a span between two positions. End is exclusive for columns.
type Range struct {
	Start Position
	End   Position
}

// LineRange returns a range covering lines start through end entirely.
func LineRange(start, end int) Range {
	return Range{Start: Position{Line: start}, End: Position{Line: end, Col: 1 << 30}}
}

// Contains reports whether r covers o.
func (r Range) Contains(o Range) bool {
	return !o.Start.Before(r.Start) && !r.End.Before(o.End)
}

// Before reports whether p sorts before o.
func (p Position) Before(o Position) bool {
	return p.Line < o.Line || (p.Line == o.Line && p.Col < o.Col)
}

func (r Range) String() string {
	return fmt.Sprintf("%d:%d-%d:%d", r.Start.Line+1, r.Start.Col+1, r.End.Line+1, r.End.Col+1)
}

// Severity ranks diagnostics.
type Severity int

const (
	Error Severity = iota + 1
	Warning
	Info
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Info:
		return "info"
	}
	return "unknown"
}

// Related points a diagnostic at a second location, such as the opener of a
// mismatched block.
type Related struct {
	Path    string
	Range   Range
	Message string
}

// Diagnostic is a located parse message.
type Diagnostic struct {
	Range    Range
	Message  string
	Severity Severity
	Related  *Related
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%d: %s: %s", d.Range.Start.Line+1, d.Severity, d.Message)
}

// Type is the value type of a config entry.
type Type string

const (
	Unset    Type = ""
	Bool     Type = "bool"
	Tristate Type = "tristate"
	String   Type = "string"
	Hex      Type = "hex"
	Int      Type = "int"
)

// Default is a `default` or `def_*` value. Value and Cond are expression text.
type Default struct {
	Value string
	Cond  string
}

// ValueRange is a `range min max [if cond]` attribute.
type ValueRange struct {
	Min  string
	Max  string
	Cond string
}

// Reverse is a `select` or `imply` reverse dependency on Target.
type Reverse struct {
	Target string
	Cond   string
}

// Dependency is a `depends on` attribute.
type Dependency struct {
	Expr string
	Cond string
}

// Comment is a standalone `comment "text"` statement.
type Comment struct {
	Text   string
	File   *File
	Line   int
	Parent *Scope
}

// Inclusion is a source-family directive. Path is as written after macro
// expansion and may still hold unresolved placeholders.
type Inclusion struct {
	Range    Range
	Path     string
	Relative bool
	Optional bool
	Scope    *Scope
	// Macros is the number of the includer's macro assignments that precede
	// the directive.
	Macros int
}

// Directive returns the keyword that produced the inclusion.
func (inc *Inclusion) Directive() string {
	switch {
	case inc.Relative && inc.Optional:
		return "orsource"
	case inc.Relative:
		return "rsource"
	case inc.Optional:
		return "osource"
	}
	return "source"
}

// Macro is a `NAME := value` style assignment.
type Macro struct {
	Name  string
	Op    string
	Value string
	Line  int
}

// File is one parsed Kconfig file.
type File struct {
	Path         string
	Inclusions   []*Inclusion
	Declarations []*Declaration
	Comments     []*Comment
	Macros       []Macro
	Diagnostics  []Diagnostic
	Root         *Scope
	Parsed       bool
}

// NewFile returns an unparsed file for path.
func NewFile(path string) *File {
	return &File{Path: path}
}

// Reset drops everything a previous parse produced.
func (f *File) Reset() {
	f.Inclusions = nil
	f.Declarations = nil
	f.Comments = nil
	f.Macros = nil
	f.Diagnostics = nil
	f.Root = nil
	f.Parsed = false
}
