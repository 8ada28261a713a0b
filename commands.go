package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/phobologic/kconfigmap/internal/discover"
	"github.com/phobologic/kconfigmap/internal/model"
	"github.com/phobologic/kconfigmap/internal/repo"
	"github.com/phobologic/kconfigmap/internal/watch"
)

func newCheckCmd(g *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	var warnings bool
	cmd := &cobra.Command{
		Use:   "check [root-Kconfig]",
		Short: "Print diagnostics and fail when the tree has errors",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := loadTree(*g, args, stderr, nil)
			if err != nil {
				return err
			}
			if err := t.parse(); err != nil {
				return err
			}

			var errs, warns int
			for _, d := range t.repo.AllDiagnostics() {
				switch d.Severity {
				case model.Error:
					errs++
				case model.Warning:
					warns++
					if !warnings {
						continue
					}
				default:
					if !warnings {
						continue
					}
				}
				_, _ = fmt.Fprint(stdout, formatDiagnostic(t.rel(d.Path), d.Diagnostic, t.rel))
			}
			_, _ = fmt.Fprintf(stderr, "%d file(s), %d symbol(s), %d error(s), %d warning(s)\n",
				len(t.repo.Files()), len(t.repo.Symbols()), errs, warns)
			if errs > 0 {
				return errTreeHasErrors
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&warnings, "warnings", "w", false, "also print warnings and notes")
	return cmd
}

// formatDiagnostic renders one diagnostic as a compiler-style line, followed
// by an indented note for its related location.
func formatDiagnostic(path string, d model.Diagnostic, rel func(string) string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:%d:%d: %s: %s\n", path, d.Range.Start.Line+1, d.Range.Start.Col+1, d.Severity, d.Message)
	if d.Related != nil {
		fmt.Fprintf(&b, "\t%s:%d: note: %s\n", rel(d.Related.Path), d.Related.Range.Start.Line+1, d.Related.Message)
	}
	return b.String()
}

func newOrphansCmd(g *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "orphans [root-Kconfig]",
		Short: "List Kconfig files that the root file never includes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := loadTree(*g, args, stderr, nil)
			if err != nil {
				return err
			}
			if err := t.parse(); err != nil {
				return err
			}
			files, err := discover.Files(t.base)
			if err != nil {
				return fmt.Errorf("discovering files: %w", err)
			}
			for _, f := range files {
				if _, ok := t.repo.File(filepath.Join(t.base, f)); !ok {
					_, _ = fmt.Fprintln(stdout, filepath.ToSlash(f))
				}
			}
			return nil
		},
	}
}

func newWatchCmd(g *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [root-Kconfig]",
		Short: "Re-check the tree whenever a Kconfig file changes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rep := &reporter{out: stdout, last: make(map[string]string)}
			t, err := loadTree(*g, args, stderr, rep.publish)
			if err != nil {
				return err
			}
			rep.rel = t.rel
			return watchTree(ctx, t, rep, stdout)
		},
	}
}

// watchTree re-analyzes t on every batch of file changes until ctx is done,
// printing the diagnostics of each file whenever they change.
func watchTree(ctx context.Context, t *tree, rep *reporter, stdout io.Writer) error {
	r := t.repo
	if err := t.parse(); err != nil {
		return err
	}
	observeAll(r)

	debounce, err := t.cfg.DebounceInterval()
	if err != nil {
		return err
	}
	w, err := watch.New(watch.Options{
		Paths:    []string{t.base},
		Exclude:  t.cfg.Exclude,
		Debounce: debounce,
		Filter: func(path string) bool {
			if _, ok := r.File(path); ok {
				return true
			}
			return discover.IsKconfig(filepath.Base(path))
		},
		Logger: t.log,
	})
	if err != nil {
		return err
	}
	defer w.Close()

	_, _ = fmt.Fprintf(stdout, "watching %s (%d files)\n", t.rel(t.root), len(r.Files()))
	err = w.Run(ctx, func(paths []string) {
		if err := r.Refresh(paths); err != nil {
			t.log.Error("refresh failed", slog.Any("error", err))
			return
		}
		observeAll(r)
		rep.prune(r)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func observeAll(r *repo.Repository) {
	for _, f := range r.Files() {
		r.Observe(f.Path)
	}
}

// reporter prints the diagnostics of observed files when they differ from
// what was printed last.
type reporter struct {
	out  io.Writer
	rel  func(string) string
	last map[string]string
}

func (p *reporter) publish(path string, diags []model.Diagnostic) {
	var b strings.Builder
	for _, d := range diags {
		b.WriteString(formatDiagnostic(p.rel(path), d, p.rel))
	}
	text := b.String()
	prev, seen := p.last[path]
	if seen && prev == text {
		return
	}
	p.last[path] = text
	if text == "" {
		if seen {
			_, _ = fmt.Fprintf(p.out, "%s: ok\n", p.rel(path))
		}
		return
	}
	_, _ = fmt.Fprint(p.out, text)
}

// prune stops observing files that are no longer reachable.
func (p *reporter) prune(r *repo.Repository) {
	for path := range p.last {
		if _, ok := r.File(path); !ok {
			r.Unobserve(path)
			delete(p.last, path)
		}
	}
}
