// Package graph builds the file graph of a Kconfig tree and ranks files with
// PageRank.
package graph

import (
	"math"
	"sort"

	"github.com/phobologic/kconfigmap/internal/model"
)

// BuildGraph creates edges from inclusions and from references to symbols
// declared in other files. A symbol declared in several files links to each
// of them.
func BuildGraph(files []model.FileInfo) []model.Edge {
	declaredIn := make(map[string][]string)
	for i := range files {
		fi := &files[i]
		for j := range fi.Tags {
			tag := &fi.Tags[j]
			if tag.Kind != model.Definition {
				continue
			}
			if !contains(declaredIn[tag.Name], fi.Path) {
				declaredIn[tag.Name] = append(declaredIn[tag.Name], fi.Path)
			}
		}
	}

	type edgeKey struct{ src, tgt string }
	edges := make(map[edgeKey]*model.Edge)
	edge := func(src, tgt string) *model.Edge {
		key := edgeKey{src, tgt}
		e, ok := edges[key]
		if !ok {
			e = &model.Edge{Source: src, Target: tgt}
			edges[key] = e
		}
		return e
	}

	for i := range files {
		fi := &files[i]
		for _, inc := range fi.Includes {
			if inc != fi.Path {
				edge(fi.Path, inc).Include = true
			}
		}
		for j := range fi.Tags {
			tag := &fi.Tags[j]
			if tag.Kind != model.Reference {
				continue
			}
			targets := append([]string(nil), declaredIn[tag.Name]...)
			sort.Strings(targets)
			for _, tgt := range targets {
				if tgt == fi.Path {
					continue
				}
				e := edge(fi.Path, tgt)
				if !contains(e.Symbols, tag.Name) {
					e.Symbols = append(e.Symbols, tag.Name)
				}
			}
		}
	}

	out := make([]model.Edge, 0, len(edges))
	for _, e := range edges {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].Target < out[j].Target
	})
	return out
}

// weight is the number of PageRank links an edge contributes.
func weight(e model.Edge) int {
	w := len(e.Symbols)
	if e.Include {
		w++
	}
	return w
}

// Rank applies PageRank to files and sorts them by rank descending. Ties keep
// inclusion order.
func Rank(files []model.FileInfo, edges []model.Edge) {
	if len(files) == 0 {
		return
	}
	if len(edges) == 0 {
		uniform := 1.0 / float64(len(files))
		for i := range files {
			files[i].Rank = uniform
		}
		return
	}

	nodes := make([]string, len(files))
	for i := range files {
		nodes[i] = files[i].Path
	}
	out := make(map[string]map[string]int)
	for _, e := range edges {
		if out[e.Source] == nil {
			out[e.Source] = make(map[string]int)
		}
		out[e.Source][e.Target] += weight(e)
	}

	ranks := pageRank(nodes, out, 0.85, 100, 1e-6)
	for i := range files {
		files[i].Rank = ranks[files[i].Path]
	}
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].Rank > files[j].Rank
	})
}

func pageRank(nodes []string, out map[string]map[string]int, alpha float64, maxIter int, tol float64) map[string]float64 {
	n := float64(len(nodes))
	rank := make(map[string]float64, len(nodes))
	for _, node := range nodes {
		rank[node] = 1 / n
	}
	degree := make(map[string]int, len(out))
	for src, targets := range out {
		for _, w := range targets {
			degree[src] += w
		}
	}

	for iter := 0; iter < maxIter; iter++ {
		var dangling float64
		for _, node := range nodes {
			if degree[node] == 0 {
				dangling += rank[node]
			}
		}
		base := (1-alpha)/n + alpha*dangling/n

		next := make(map[string]float64, len(nodes))
		for _, node := range nodes {
			next[node] = base
		}
		for src, targets := range out {
			share := alpha * rank[src] / float64(degree[src])
			for tgt, w := range targets {
				if _, known := rank[tgt]; known {
					next[tgt] += share * float64(w)
				}
			}
		}

		var diff float64
		for _, node := range nodes {
			diff += math.Abs(next[node] - rank[node])
		}
		rank = next
		if diff < tol {
			break
		}
	}
	return rank
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
