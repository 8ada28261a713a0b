// Package repo aggregates the declarations of every Kconfig file reachable
// from a root file into one symbol table and keeps it current as files
// change.
//
// A Repository is not safe for concurrent use. Callers deliver events (edits,
// external file changes, root changes) one at a time from a single goroutine.
package repo

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/phobologic/kconfigmap/internal/document"
	"github.com/phobologic/kconfigmap/internal/include"
	"github.com/phobologic/kconfigmap/internal/model"
	"github.com/phobologic/kconfigmap/internal/parse"
	"github.com/phobologic/kconfigmap/internal/token"
)

var (
	// ErrNoRoot is returned by Parse before SetRoot has been called.
	ErrNoRoot = errors.New("no root file configured")

	// ErrReentrant is returned when Parse or OnChange is called from inside a
	// publisher callback of the same repository.
	ErrReentrant = errors.New("repository is already processing an event")
)

// Publisher receives the current diagnostics of an observed file.
type Publisher func(path string, diags []model.Diagnostic)

// Options configures a Repository.
type Options struct {
	// Docs supplies file text. A fresh store is used when nil.
	Docs *document.Store
	// Srctree is the base directory of source and osource directives. The
	// root file's directory is used when empty.
	Srctree string
	// Lookup resolves $(name) placeholders, typically from the environment.
	Lookup token.Lookup
	// CacheSize bounds the wildcard expansion cache.
	CacheSize int
	// Publish is called with diagnostics of observed files after each change.
	Publish Publisher
	// Logger receives debug output. Pass nil to disable logging.
	Logger *slog.Logger
}

// Repository is the merged symbol database of one Kconfig tree.
type Repository struct {
	opts     Options
	docs     *document.Store
	resolver *include.Resolver
	log      *slog.Logger

	root     *model.File
	files    map[string]*model.File
	order    []*model.File
	includes map[*model.File][]*model.File
	lookups  map[*model.File]token.Lookup
	links    map[*model.File][]model.Diagnostic
	observed map[string]struct{}

	symbols map[string]*model.Symbol
	choices []*model.Symbol
	list    []*model.Symbol

	busy bool
}

// New returns an empty repository.
func New(opts Options) *Repository {
	if opts.Docs == nil {
		opts.Docs = document.NewStore()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	r := &Repository{
		opts:     opts,
		docs:     opts.Docs,
		log:      opts.Logger,
		observed: make(map[string]struct{}),
	}
	r.reset()
	return r
}

func (r *Repository) reset() {
	r.files = make(map[string]*model.File)
	r.order = nil
	r.includes = make(map[*model.File][]*model.File)
	r.lookups = make(map[*model.File]token.Lookup)
	r.links = make(map[*model.File][]model.Diagnostic)
	r.symbols = make(map[string]*model.Symbol)
	r.choices = nil
	r.list = nil
}

// SetRoot discards every symbol and file and makes path the root. Nothing is
// parsed until Parse is called.
func (r *Repository) SetRoot(path string) error {
	r.reset()
	key := document.Key(path)
	srctree := filepath.Dir(key)
	if r.opts.Srctree != "" {
		srctree = document.Key(r.opts.Srctree)
	}
	resolver, err := include.New(r.docs, srctree, r.opts.CacheSize, r.log)
	if err != nil {
		return err
	}
	r.resolver = resolver
	r.root = model.NewFile(key)
	r.files[key] = r.root
	r.lookups[r.root] = r.opts.Lookup
	return nil
}

// Parse parses the root file and, transitively, every file it includes.
func (r *Repository) Parse() error {
	if r.root == nil {
		return ErrNoRoot
	}
	if r.busy {
		return ErrReentrant
	}
	r.busy = true
	defer func() { r.busy = false }()

	start := time.Now()
	for _, f := range r.files {
		f.Parsed = false
	}
	r.link()
	r.log.Info("parsed kconfig tree",
		slog.String("root", r.root.Path),
		slog.Int("files", len(r.order)),
		slog.Int("symbols", len(r.symbols)),
		slog.Duration("elapsed", time.Since(start)))
	r.publishObserved()
	return nil
}

// OnChange reparses every file instance for path after an edit. With a nil
// edit list the content is assumed to have changed on disk. Edits that are
// all zero-width insertions of nothing are ignored.
func (r *Repository) OnChange(path string, edits []document.Edit) error {
	if r.root == nil {
		return ErrNoRoot
	}
	if r.busy {
		return ErrReentrant
	}
	if edits != nil && noop(edits) {
		return nil
	}
	r.busy = true
	defer func() { r.busy = false }()

	if edits != nil && r.docs.IsOpen(path) {
		changed, err := r.docs.Apply(path, edits)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
	}

	key := document.Key(path)
	instances := r.instances(key)
	if len(instances) == 0 {
		// A new or removed file can satisfy or break a directive elsewhere.
		r.resolver.Invalidate()
	}
	for _, f := range instances {
		f.Parsed = false
	}
	r.link()
	r.log.Debug("file changed",
		slog.String("path", key),
		slog.Int("instances", len(instances)))
	r.publishObserved()
	return nil
}

// Refresh handles a batch of external file changes: wildcard expansions are
// dropped and every changed file without an editor buffer is reparsed.
func (r *Repository) Refresh(paths []string) error {
	if r.root == nil {
		return ErrNoRoot
	}
	if r.busy {
		return ErrReentrant
	}
	r.busy = true
	defer func() { r.busy = false }()

	r.resolver.Invalidate()
	for _, p := range paths {
		if r.docs.IsOpen(p) {
			continue
		}
		for _, f := range r.instances(document.Key(p)) {
			f.Parsed = false
		}
	}
	r.link()
	r.publishObserved()
	return nil
}

func (r *Repository) instances(key string) []*model.File {
	var out []*model.File
	for _, f := range r.order {
		if f.Path == key {
			out = append(out, f)
		}
	}
	if f, ok := r.files[key]; ok && len(out) == 0 {
		out = append(out, f)
	}
	return out
}

func noop(edits []document.Edit) bool {
	for _, e := range edits {
		if e.Text != "" || e.Range.Start != e.Range.End {
			return false
		}
	}
	return true
}

// link walks the inclusion graph from the root, parsing files that are new
// or marked unparsed, and drops files that are no longer reachable.
func (r *Repository) link() {
	r.order = nil
	r.includes = make(map[*model.File][]*model.File)
	r.links = make(map[*model.File][]model.Diagnostic)

	visited := make(map[*model.File]bool)
	var active []*model.File
	var visit func(f *model.File)
	visit = func(f *model.File) {
		visited[f] = true
		r.order = append(r.order, f)
		if !f.Parsed {
			r.parseFile(f)
		}
		active = append(active, f)
		defer func() { active = active[:len(active)-1] }()

		for _, inc := range f.Inclusions {
			targets, diag := r.resolver.Resolve(inc, f.Path)
			if diag != nil {
				r.links[f] = append(r.links[f], *diag)
				continue
			}
			for _, target := range targets {
				key := document.Key(target)
				child := r.files[key]
				if child == nil {
					child = model.NewFile(key)
					r.files[key] = child
				}
				if onPath(active, child) {
					r.links[f] = append(r.links[f], cycle(inc, active, child))
					continue
				}
				r.includes[f] = append(r.includes[f], child)
				if visited[child] {
					continue
				}
				r.lookups[child] = parse.MacroLookup(f.Macros[:inc.Macros], r.lookups[f])
				visit(child)
			}
		}
	}
	visit(r.root)

	for key, f := range r.files {
		if !visited[f] {
			r.drop(f)
			delete(r.files, key)
		}
	}
	r.reorder()
}

func onPath(active []*model.File, f *model.File) bool {
	for _, a := range active {
		if a == f {
			return true
		}
	}
	return false
}

func cycle(inc *model.Inclusion, active []*model.File, target *model.File) model.Diagnostic {
	var chain []string
	for i, a := range active {
		if a == target {
			for _, b := range active[i:] {
				chain = append(chain, b.Path)
			}
			break
		}
	}
	chain = append(chain, target.Path)
	return model.Diagnostic{
		Range:    inc.Range,
		Message:  fmt.Sprintf("recursive inclusion: %s", strings.Join(chain, " -> ")),
		Severity: model.Error,
		Related:  &model.Related{Path: target.Path, Range: model.LineRange(0, 0), Message: "included file"},
	}
}

// parseFile rebuilds f and moves the symbol table from its old declarations
// to its new ones. New declarations are attached before the old ones are
// removed so a symbol declared in both survives.
func (r *Repository) parseFile(f *model.File) {
	old := f.Declarations
	text, err := r.docs.Get(f.Path)
	if err != nil {
		f.Reset()
		f.Root = &model.Scope{Kind: model.RootScope}
		f.Diagnostics = []model.Diagnostic{{
			Range:    model.LineRange(0, 0),
			Message:  fmt.Sprintf("cannot read %s: %v", f.Path, err),
			Severity: model.Error,
		}}
		f.Parsed = true
		r.log.Warn("cannot read kconfig file", slog.String("path", f.Path), slog.Any("error", err))
	} else {
		parse.Text(f, text, parse.Options{
			Symbols: table{r},
			Lookup:  r.lookups[f],
			Logger:  r.log,
		})
	}
	r.forget(old)
}

func (r *Repository) drop(f *model.File) {
	r.forget(f.Declarations)
	delete(r.includes, f)
	delete(r.lookups, f)
	delete(r.links, f)
}

// forget detaches decls from their symbols, removing symbols left without
// declarations.
func (r *Repository) forget(decls []*model.Declaration) {
	for _, d := range decls {
		sym := d.Symbol
		if sym.Choice || !sym.Remove(d) {
			continue
		}
		if len(sym.Declarations) == 0 && r.symbols[sym.Name] == sym {
			delete(r.symbols, sym.Name)
		}
	}
}

// reorder sorts every symbol's declarations into file order and rebuilds the
// derived caches.
func (r *Repository) reorder() {
	rank := make(map[*model.File]int, len(r.order))
	for i, f := range r.order {
		rank[f] = i
	}
	for _, sym := range r.symbols {
		sort.SliceStable(sym.Declarations, func(i, j int) bool {
			a, b := sym.Declarations[i], sym.Declarations[j]
			if rank[a.File] != rank[b.File] {
				return rank[a.File] < rank[b.File]
			}
			return a.Line() < b.Line()
		})
	}
	r.choices = nil
	for _, f := range r.order {
		for _, d := range f.Declarations {
			if d.Kind == model.ChoiceDecl {
				r.choices = append(r.choices, d.Symbol)
			}
		}
	}
	r.list = nil
}

// table adapts the repository's symbol map to parse.SymbolTable.
type table struct{ r *Repository }

func (t table) Symbol(name string) *model.Symbol {
	if s, ok := t.r.symbols[name]; ok {
		return s
	}
	s := &model.Symbol{Name: name}
	t.r.symbols[name] = s
	t.r.list = nil
	return s
}
