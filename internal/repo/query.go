package repo

import (
	"sort"

	"github.com/phobologic/kconfigmap/internal/document"
	"github.com/phobologic/kconfigmap/internal/model"
	"github.com/phobologic/kconfigmap/internal/token"
)

// Root returns the root file, or nil before SetRoot.
func (r *Repository) Root() *model.File {
	return r.root
}

// Docs returns the document store the repository reads from.
func (r *Repository) Docs() *document.Store {
	return r.docs
}

// Symbols returns the name to symbol table. Callers must not modify it.
func (r *Repository) Symbols() map[string]*model.Symbol {
	return r.symbols
}

// Symbol looks up a plain (non-choice) symbol by name.
func (r *Repository) Symbol(name string) (*model.Symbol, bool) {
	s, ok := r.symbols[name]
	return s, ok
}

// SymbolList returns all plain symbols sorted by name. The slice is cached
// until the tree changes.
func (r *Repository) SymbolList() []*model.Symbol {
	if r.list != nil {
		return r.list
	}
	list := make([]*model.Symbol, 0, len(r.symbols))
	for _, s := range r.symbols {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	r.list = list
	return list
}

// Choices returns the synthetic symbols of every choice block in file order.
func (r *Repository) Choices() []*model.Symbol {
	return r.choices
}

// Files returns the reachable files in depth-first inclusion order.
func (r *Repository) Files() []*model.File {
	return r.order
}

// File returns the reachable file for path.
func (r *Repository) File(path string) (*model.File, bool) {
	f, ok := r.files[document.Key(path)]
	return f, ok
}

// Includes returns the files path includes directly.
func (r *Repository) Includes(path string) []*model.File {
	f, ok := r.File(path)
	if !ok {
		return nil
	}
	return r.includes[f]
}

// Closure returns every file reachable from path through inclusions,
// excluding path itself, in depth-first order.
func (r *Repository) Closure(path string) []*model.File {
	f, ok := r.File(path)
	if !ok {
		return nil
	}
	seen := map[*model.File]bool{f: true}
	var out []*model.File
	var walk func(*model.File)
	walk = func(f *model.File) {
		for _, c := range r.includes[f] {
			if seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, c)
			walk(c)
		}
	}
	walk(f)
	return out
}

// Diagnostics returns the parse and resolution diagnostics of path.
func (r *Repository) Diagnostics(path string) []model.Diagnostic {
	f, ok := r.File(path)
	if !ok {
		return nil
	}
	return r.diagnostics(f)
}

func (r *Repository) diagnostics(f *model.File) []model.Diagnostic {
	links := r.links[f]
	if len(links) == 0 {
		return f.Diagnostics
	}
	out := make([]model.Diagnostic, 0, len(f.Diagnostics)+len(links))
	out = append(out, f.Diagnostics...)
	out = append(out, links...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Range.Start.Before(out[j].Range.Start)
	})
	return out
}

// AllDiagnostics returns the diagnostics of every reachable file.
func (r *Repository) AllDiagnostics() []model.FileDiagnostic {
	var out []model.FileDiagnostic
	for _, f := range r.order {
		for _, d := range r.diagnostics(f) {
			out = append(out, model.FileDiagnostic{Path: f.Path, Diagnostic: d})
		}
	}
	return out
}

// Observe marks path as shown to a user; its diagnostics are published after
// every change. The current diagnostics are published immediately.
func (r *Repository) Observe(path string) {
	key := document.Key(path)
	r.observed[key] = struct{}{}
	if f, ok := r.files[key]; ok && f.Parsed && r.opts.Publish != nil {
		r.opts.Publish(key, r.diagnostics(f))
	}
}

// Unobserve stops publishing diagnostics for path.
func (r *Repository) Unobserve(path string) {
	delete(r.observed, document.Key(path))
}

func (r *Repository) publishObserved() {
	if r.opts.Publish == nil {
		return
	}
	for key := range r.observed {
		f, ok := r.files[key]
		if !ok {
			r.opts.Publish(key, nil)
			continue
		}
		r.opts.Publish(key, r.diagnostics(f))
	}
}

// Map snapshots the tree as tagged files for graph building and encoding.
func (r *Repository) Map(name string) *model.RepoMap {
	rm := &model.RepoMap{Name: name}
	if r.root != nil {
		rm.Root = r.root.Path
	}
	for _, f := range r.order {
		fi := model.FileInfo{Path: f.Path}
		for _, d := range r.diagnostics(f) {
			if d.Severity == model.Error {
				fi.Errors++
			}
		}
		for _, c := range r.includes[f] {
			fi.Includes = append(fi.Includes, c.Path)
		}
		for _, d := range f.Declarations {
			fi.Tags = append(fi.Tags, model.Tag{
				Name:   d.Symbol.Name,
				Kind:   model.Definition,
				Entry:  d.Kind,
				Type:   d.Type,
				Line:   d.Line() + 1,
				File:   f.Path,
				Prompt: d.Prompt,
			})
			for _, ref := range references(d) {
				fi.Tags = append(fi.Tags, model.Tag{
					Name: ref,
					Kind: model.Reference,
					Line: d.Line() + 1,
					File: f.Path,
				})
			}
		}
		rm.Files = append(rm.Files, fi)
	}
	rm.Diagnostics = r.AllDiagnostics()
	return rm
}

// references lists the symbols a declaration names in its attributes.
func references(d *model.Declaration) []string {
	var exprs []string
	exprs = append(exprs, d.PromptCond)
	for _, dep := range d.Dependencies {
		exprs = append(exprs, dep.Expr, dep.Cond)
	}
	for _, def := range d.Defaults {
		exprs = append(exprs, def.Value, def.Cond)
	}
	for _, rng := range d.Ranges {
		exprs = append(exprs, rng.Min, rng.Max, rng.Cond)
	}
	for _, rev := range append(append([]model.Reverse(nil), d.Selects...), d.Implies...) {
		exprs = append(exprs, rev.Target, rev.Cond)
	}

	var out []string
	seen := map[string]struct{}{d.Symbol.Name: {}}
	for _, e := range exprs {
		for _, name := range token.Identifiers(e) {
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}
