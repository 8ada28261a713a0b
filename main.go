// kconfigmap parses a Kconfig tree and prints a ranked map of its files,
// symbols and diagnostics in TOON format.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phobologic/kconfigmap/internal/config"
	"github.com/phobologic/kconfigmap/internal/discover"
	"github.com/phobologic/kconfigmap/internal/graph"
	"github.com/phobologic/kconfigmap/internal/model"
	"github.com/phobologic/kconfigmap/internal/ranking"
	"github.com/phobologic/kconfigmap/internal/repo"
	"github.com/phobologic/kconfigmap/internal/toon"
)

var version = "dev"

// errTreeHasErrors is returned by check when any file has an error diagnostic.
var errTreeHasErrors = errors.New("kconfig tree has errors")

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// globalOptions are the flags shared by every command.
type globalOptions struct {
	configPath string
	srctree    string
	verbose    bool
}

func run(args []string, stdout, stderr io.Writer) error {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	return cmd.Execute()
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var (
		g           globalOptions
		maxFiles    int
		symbol      string
		file        string
		cachePath   string
		showVersion bool
	)

	cmd := &cobra.Command{
		Use:   "kconfigmap [flags] [root-Kconfig]",
		Short: "Map the files, symbols and diagnostics of a Kconfig tree",
		Long: `kconfigmap parses a Kconfig tree starting at the root file (default: the
root setting of .kconfigmap.yaml, or ./Kconfig) and prints files ranked by
PageRank, symbol declarations, inclusion and reference edges, and diagnostics.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				_, _ = fmt.Fprintf(stdout, "kconfigmap %s\n", version)
				return nil
			}
			t, err := loadTree(g, args, stderr, nil)
			if err != nil {
				return err
			}
			if maxFiles == 0 {
				maxFiles = t.cfg.MaxFiles
			}

			// Filtered output is never cached.
			useCache := cachePath != "" && symbol == "" && file == ""
			if useCache && cacheIsFresh(cachePath, t) {
				if data, err := os.ReadFile(cachePath); err == nil {
					_, _ = stdout.Write(data)
					return nil
				}
			}

			if err := t.parse(); err != nil {
				return err
			}
			rm := t.repoMap()
			if symbol != "" {
				rm = ranking.FilterBySymbol(rm, symbol)
			}
			if file != "" {
				rm = ranking.FilterByFile(rm, file)
			}
			if maxFiles > 0 {
				rm = ranking.SelectFiles(rm, maxFiles)
			}

			if n := countErrors(t.repo.AllDiagnostics()); n > 0 {
				_, _ = fmt.Fprintf(stderr, "Warning: %d error(s) in the tree; run 'kconfigmap check' for details\n", n)
			}

			output := toon.Encode(rm)
			if useCache {
				_ = os.WriteFile(cachePath, []byte(output+"\n"), 0o644)
			}
			_, _ = fmt.Fprintln(stdout, output)
			return nil
		},
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	pf := cmd.PersistentFlags()
	pf.StringVar(&g.configPath, "config", config.FileName, "configuration file")
	pf.StringVar(&g.srctree, "srctree", "", "base directory of source directives (default: directory of the root file)")
	pf.BoolVar(&g.verbose, "verbose", false, "log debug output to stderr")

	f := cmd.Flags()
	f.IntVarP(&maxFiles, "max-files", "n", 0, "maximum number of files to include")
	f.StringVar(&symbol, "symbol", "", "only show symbols whose name contains this substring")
	f.StringVar(&file, "file", "", "only show files whose path contains this substring")
	f.StringVar(&cachePath, "cache", "", "cache file path")
	f.BoolVarP(&showVersion, "version", "V", false, "show version and exit")

	cmd.AddCommand(
		newCheckCmd(&g, stdout, stderr),
		newWatchCmd(&g, stdout, stderr),
		newOrphansCmd(&g, stdout, stderr),
		newInitCmd(stdout, stderr),
	)
	return cmd
}

// tree is a configured, not yet parsed repository.
type tree struct {
	cfg        *config.Config
	configPath string
	root       string
	base       string
	log        *slog.Logger
	repo       *repo.Repository
}

func loadTree(g globalOptions, args []string, stderr io.Writer, publish repo.Publisher) (*tree, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}

	root := cfg.Root
	if len(args) > 0 {
		root = args[0]
	}
	root, err = filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("root file: %w", err)
	}
	if info.IsDir() {
		root = filepath.Join(root, "Kconfig")
		if _, err := os.Stat(root); err != nil {
			return nil, fmt.Errorf("root file: %w", err)
		}
	}

	if g.srctree != "" {
		cfg.Srctree = g.srctree
	}
	if cfg.Srctree != "" {
		if cfg.Srctree, err = filepath.Abs(cfg.Srctree); err != nil {
			return nil, fmt.Errorf("resolving srctree: %w", err)
		}
	}
	base := cfg.Srctree
	if base == "" {
		base = filepath.Dir(root)
	}

	level := slog.LevelWarn
	if g.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	r := repo.New(repo.Options{
		Srctree:   cfg.Srctree,
		Lookup:    cfg.Lookup(),
		CacheSize: cfg.CacheSize,
		Publish:   publish,
		Logger:    logger,
	})
	if err := r.SetRoot(root); err != nil {
		return nil, fmt.Errorf("root file: %w", err)
	}
	return &tree{
		cfg:        cfg,
		configPath: g.configPath,
		root:       root,
		base:       base,
		log:        logger,
		repo:       r,
	}, nil
}

func (t *tree) parse() error {
	if err := t.repo.Parse(); err != nil {
		return fmt.Errorf("parsing %s: %w", t.root, err)
	}
	return nil
}

// rel shortens paths below the tree's base directory.
func (t *tree) rel(path string) string {
	r, err := filepath.Rel(t.base, path)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return path
	}
	return filepath.ToSlash(r)
}

// repoMap snapshots the parsed tree with base-relative paths, builds the
// file graph and ranks the files.
func (t *tree) repoMap() *model.RepoMap {
	rm := t.repo.Map(filepath.Base(t.base))
	rm.Root = t.rel(rm.Root)
	for i := range rm.Files {
		fi := &rm.Files[i]
		fi.Path = t.rel(fi.Path)
		for j := range fi.Includes {
			fi.Includes[j] = t.rel(fi.Includes[j])
		}
		for j := range fi.Tags {
			fi.Tags[j].File = fi.Path
		}
	}
	for i := range rm.Diagnostics {
		rm.Diagnostics[i].Path = t.rel(rm.Diagnostics[i].Path)
	}

	rm.Edges = graph.BuildGraph(rm.Files)
	graph.Rank(rm.Files, rm.Edges)
	return rm
}

// cacheIsFresh reports whether the cache is newer than the root file, the
// configuration file and every Kconfig file below the base directory.
func cacheIsFresh(cachePath string, t *tree) bool {
	cacheInfo, err := os.Stat(cachePath)
	if err != nil {
		return false
	}
	cacheMtime := cacheInfo.ModTime()

	files, err := discover.Files(t.base)
	if err != nil {
		return false
	}
	paths := []string{t.root}
	for _, f := range files {
		paths = append(paths, filepath.Join(t.base, f))
	}
	if info, err := os.Stat(t.configPath); err == nil && !info.ModTime().Before(cacheMtime) {
		return false
	}

	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil {
			return false
		}
		if !fi.ModTime().Before(cacheMtime) {
			return false
		}
	}
	return true
}

func countErrors(diags []model.FileDiagnostic) int {
	n := 0
	for _, d := range diags {
		if d.Severity == model.Error {
			n++
		}
	}
	return n
}
