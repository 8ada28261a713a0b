package discover

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiscoverKconfigFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, "Kconfig", "source \"drivers/Kconfig\"")
	writeFile(t, dir, "drivers/Kconfig", "config PCI\n\tbool")
	writeFile(t, dir, "drivers/net/Kconfig.intel", "config E1000\n\tbool")
	// Not Kconfig files
	writeFile(t, dir, "Makefile", "obj-y += x.o")
	writeFile(t, dir, "drivers/Kconfig.", "")
	writeFile(t, dir, "drivers/MyKconfig", "")

	got, err := Files(dir)
	if err != nil {
		t.Fatalf("Files: %v", err)
	}

	want := []string{
		"Kconfig",
		filepath.Join("drivers", "Kconfig"),
		filepath.Join("drivers", "net", "Kconfig.intel"),
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d files, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDiscoverSkipDirs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, "Kconfig", "")
	writeFile(t, dir, "node_modules/Kconfig", "")
	writeFile(t, dir, ".hidden/Kconfig", "")
	writeFile(t, dir, "out/Kconfig", "")

	got, err := Files(dir)
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(got) != 1 || got[0] != "Kconfig" {
		t.Fatalf("expected only Kconfig, got %v", got)
	}
}

func TestDiscoverGitignore(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, ".gitignore", "generated\n")
	writeFile(t, dir, "Kconfig", "")
	writeFile(t, dir, "generated/Kconfig", "")

	got, err := Files(dir)
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(got) != 1 || got[0] != "Kconfig" {
		t.Fatalf("expected ignored directory to be skipped, got %v", got)
	}
}

func TestDiscoverSymlinksSkipped(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "Kconfig", "")

	err := os.Symlink(filepath.Join(dir, "Kconfig"), filepath.Join(dir, "Kconfig.link"))
	if err != nil {
		t.Skip("symlinks not supported")
	}

	got, err := Files(dir)
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(got) != 1 || got[0] != "Kconfig" {
		t.Fatalf("expected 1 entry (no symlink), got %v", got)
	}
}

func TestIsKconfig(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		want bool
	}{
		{"Kconfig", true},
		{"Kconfig.debug", true},
		{"Kconfig.socs", true},
		{"Kconfig.", false},
		{"kconfig", false},
		{"Kconfig-old", false},
		{"MyKconfig", false},
		{"Makefile", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := IsKconfig(tc.name); got != tc.want {
				t.Errorf("IsKconfig(%q) = %v, want %v", tc.name, got, tc.want)
			}
		})
	}
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
