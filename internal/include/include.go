// Package include resolves source, rsource, osource and orsource directives to
// the files they name.
package include

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/phobologic/kconfigmap/internal/model"
	"github.com/phobologic/kconfigmap/internal/token"
)

// DefaultCacheSize is the number of wildcard expansions kept.
const DefaultCacheSize = 256

// FS provides the existence and listing primitives resolution needs.
type FS interface {
	Exists(path string) bool
	ReadDir(dir string) ([]fs.DirEntry, error)
}

// Resolver maps inclusions to absolute file paths.
type Resolver struct {
	fs    FS
	base  string
	cache *lru.Cache[string, []string]
	log   *slog.Logger
}

// New returns a resolver. Non-relative directives resolve against base.
// Pass nil for logger to disable logging.
func New(fsys FS, base string, cacheSize int, logger *slog.Logger) (*Resolver, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, []string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating wildcard cache: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{fs: fsys, base: base, cache: cache, log: logger}, nil
}

// Base returns the directory plain source directives resolve against.
func (r *Resolver) Base() string {
	return r.base
}

// Target returns the path inc names, joined to the right base directory.
func (r *Resolver) Target(inc *model.Inclusion, from string) string {
	path := filepath.FromSlash(inc.Path)
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	dir := r.base
	if inc.Relative || dir == "" {
		dir = filepath.Dir(from)
	}
	return filepath.Join(dir, path)
}

// Resolve returns the files inc includes, in sorted order for wildcards. A
// required directive that matches nothing yields an error diagnostic; an
// optional one yields nothing at all.
func (r *Resolver) Resolve(inc *model.Inclusion, from string) ([]string, *model.Diagnostic) {
	target := r.Target(inc, from)

	var found []string
	if IsWildcard(target) {
		found = r.glob(target)
	} else if r.fs.Exists(target) {
		found = []string{target}
	}
	if len(found) > 0 || inc.Optional {
		return found, nil
	}

	msg := fmt.Sprintf("%s: %q not found", inc.Directive(), inc.Path)
	if token.HasPlaceholder(inc.Path) {
		msg += " (unresolved macro)"
	}
	r.log.Debug("inclusion not found",
		slog.String("from", from),
		slog.String("target", target))
	return nil, &model.Diagnostic{Range: inc.Range, Message: msg, Severity: model.Error}
}

// Invalidate drops cached wildcard expansions.
func (r *Resolver) Invalidate() {
	r.cache.Purge()
}

// IsWildcard reports whether path holds glob metacharacters.
func IsWildcard(path string) bool {
	return strings.ContainsAny(path, "*?[")
}

func (r *Resolver) glob(pattern string) []string {
	if cached, ok := r.cache.Get(pattern); ok {
		return cached
	}
	slashed := filepath.ToSlash(pattern)
	g, err := glob.Compile(slashed, '/')
	if err != nil {
		r.log.Debug("invalid wildcard", slog.String("pattern", pattern), slog.Any("error", err))
		return nil
	}

	segments := strings.Split(slashed, "/")
	static := 0
	for static < len(segments) && !IsWildcard(segments[static]) {
		static++
	}
	root := strings.Join(segments[:static], "/")
	if root == "" {
		root = "/"
	}

	var matches []string
	r.walk(filepath.FromSlash(root), len(segments)-static, func(path string) {
		if g.Match(filepath.ToSlash(path)) && r.fs.Exists(path) {
			matches = append(matches, path)
		}
	})
	sort.Strings(matches)
	r.cache.Add(pattern, matches)
	return matches
}

// walk visits every entry exactly depth levels below dir.
func (r *Resolver) walk(dir string, depth int, visit func(string)) {
	entries, err := r.fs.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if depth == 1 {
			visit(path)
			continue
		}
		if e.IsDir() {
			r.walk(path, depth-1, visit)
		}
	}
}
