package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/phobologic/kconfigmap/internal/config"
)

const configHeader = `# kconfigmap configuration.
#
# root:       top-level Kconfig file, relative to this file
# srctree:    base directory of source directives and $(srctree)
# env:        macro values used before the process environment
# exclude:    globs of paths the watch command ignores
# debounce:   quiet period before the watch command re-checks
# max_files:  default for --max-files (0 shows every file)
# cache_size: number of cached wildcard source expansions
`

// newInitCmd implements `kconfigmap init`, which writes a starter
// .kconfigmap.yaml next to the root Kconfig file.
func newInitCmd(stdout, stderr io.Writer) *cobra.Command {
	var (
		dryRun bool
		force  bool
		arch   string
	)

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Write a starter " + config.FileName,
		Long: `Write a starter ` + config.FileName + ` to directory (default: the current
directory). The root setting points at directory/Kconfig when that file exists.
An existing file is left alone unless --force is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			content, err := generateConfig(dir, arch)
			if err != nil {
				return err
			}

			if dryRun {
				_, _ = fmt.Fprint(stdout, content)
				return nil
			}

			path := filepath.Join(dir, config.FileName)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("checking %s: %w", path, err)
			}

			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
			_, _ = fmt.Fprintf(stderr, "wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the configuration instead of writing it")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing configuration file")
	cmd.Flags().StringVar(&arch, "arch", "", "set ARCH and SRCARCH macros for arch/$(SRCARCH)/Kconfig sources")
	return cmd
}

// generateConfig returns the commented YAML for a starter configuration.
func generateConfig(dir, arch string) (string, error) {
	cfg := config.Default()
	if _, err := os.Stat(filepath.Join(dir, "Kconfig")); err != nil {
		cfg.Root = ""
	}
	if arch != "" {
		cfg.Env = map[string]string{"ARCH": arch, "SRCARCH": arch}
	}
	cfg.Exclude = []string{"**/*.orig", "**/*.rej"}

	data, err := cfg.Marshal()
	if err != nil {
		return "", fmt.Errorf("encoding configuration: %w", err)
	}
	return configHeader + "\n" + string(data), nil
}
