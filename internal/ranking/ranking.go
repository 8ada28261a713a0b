// Package ranking trims a ranked map to the files and symbols a reader asked for.
package ranking

import (
	"strings"

	"github.com/phobologic/kconfigmap/internal/model"
)

// SelectFiles returns a new RepoMap with only the top-ranked files, the edges
// between them and their diagnostics. If maxFiles is <= 0 or >= len(files),
// rm is returned unchanged.
func SelectFiles(rm *model.RepoMap, maxFiles int) *model.RepoMap {
	if maxFiles <= 0 || maxFiles >= len(rm.Files) {
		return rm
	}
	return restrict(rm, rm.Files[:maxFiles], func(e *model.Edge, src, tgt bool) bool {
		return src && tgt
	})
}

// FilterBySymbol keeps the files that declare a symbol whose name contains
// substr (case-insensitive), and the files that reference those symbols.
// Tags of kept files are trimmed to the matching symbols.
func FilterBySymbol(rm *model.RepoMap, substr string) *model.RepoMap {
	lower := strings.ToLower(substr)

	matched := make(map[string]struct{})
	for i := range rm.Files {
		for j := range rm.Files[i].Tags {
			tag := &rm.Files[i].Tags[j]
			if tag.Kind == model.Definition && strings.Contains(strings.ToLower(tag.Name), lower) {
				matched[tag.Name] = struct{}{}
			}
		}
	}

	var files []model.FileInfo
	for i := range rm.Files {
		fi := rm.Files[i]
		var tags []model.Tag
		for _, tag := range fi.Tags {
			if _, ok := matched[tag.Name]; ok {
				tags = append(tags, tag)
			}
		}
		if len(tags) == 0 {
			continue
		}
		fi.Tags = tags
		files = append(files, fi)
	}

	return restrict(rm, files, func(e *model.Edge, src, tgt bool) bool {
		if !src || !tgt {
			return false
		}
		for _, s := range e.Symbols {
			if _, ok := matched[s]; ok {
				return true
			}
		}
		return false
	})
}

// FilterByFile keeps files whose path contains substr (case-insensitive) and
// every edge touching them.
func FilterByFile(rm *model.RepoMap, substr string) *model.RepoMap {
	lower := strings.ToLower(substr)
	var files []model.FileInfo
	for i := range rm.Files {
		if strings.Contains(strings.ToLower(rm.Files[i].Path), lower) {
			files = append(files, rm.Files[i])
		}
	}
	return restrict(rm, files, func(e *model.Edge, src, tgt bool) bool {
		return src || tgt
	})
}

func restrict(rm *model.RepoMap, files []model.FileInfo, keep func(e *model.Edge, src, tgt bool) bool) *model.RepoMap {
	paths := make(map[string]struct{}, len(files))
	for i := range files {
		paths[files[i].Path] = struct{}{}
	}

	var edges []model.Edge
	for i := range rm.Edges {
		e := &rm.Edges[i]
		_, src := paths[e.Source]
		_, tgt := paths[e.Target]
		if keep(e, src, tgt) {
			edges = append(edges, *e)
		}
	}

	var diags []model.FileDiagnostic
	for _, d := range rm.Diagnostics {
		if _, ok := paths[d.Path]; ok {
			diags = append(diags, d)
		}
	}

	return &model.RepoMap{
		Name:        rm.Name,
		Root:        rm.Root,
		Files:       files,
		Edges:       edges,
		Diagnostics: diags,
	}
}
