package model

// TagKind indicates whether a tag is a definition or a reference.
type TagKind string

const (
	Definition TagKind = "def"
	Reference  TagKind = "ref"
)

// Tag is a single symbol occurrence in a Kconfig file: a definition for
// config/menuconfig/choice entries, a reference for every symbol named in an
// expression, select or imply.
type Tag struct {
	Name   string
	Kind   TagKind
	Entry  EntryKind
	Type   Type
	Line   int
	File   string
	Prompt string
}

// FileInfo holds the tags and inclusion targets of one reachable file.
type FileInfo struct {
	Path     string
	Tags     []Tag
	Includes []string
	Errors   int
	Rank     float64
}

// Edge represents an edge in the file graph: Source includes Target, or
// references symbols defined in Target.
type Edge struct {
	Source  string
	Target  string
	Include bool
	Symbols []string
}

// FileDiagnostic is a diagnostic bound to its file for reporting.
type FileDiagnostic struct {
	Path string
	Diagnostic
}

// RepoMap is the complete analyzed Kconfig tree, ready for serialization.
type RepoMap struct {
	Name        string
	Root        string
	Files       []FileInfo
	Edges       []Edge
	Diagnostics []FileDiagnostic
}
