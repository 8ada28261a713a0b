package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), FileName))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `root: arch/x86/Kconfig
srctree: .
env:
  ARCH: x86
  SRCARCH: x86
exclude:
  - "**/*.orig"
debounce: 50ms
max_files: 20
cache_size: 16
`)
	dir := filepath.Dir(path)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "arch/x86/Kconfig"), cfg.Root)
	assert.Equal(t, dir, cfg.Srctree)
	assert.Equal(t, map[string]string{"ARCH": "x86", "SRCARCH": "x86"}, cfg.Env)
	assert.Equal(t, []string{"**/*.orig"}, cfg.Exclude)
	assert.Equal(t, 20, cfg.MaxFiles)
	assert.Equal(t, 16, cfg.CacheSize)

	d, err := cfg.DebounceInterval()
	require.NoError(t, err)
	assert.Equal(t, 50*time.Millisecond, d)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "max_files: 5\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "Kconfig"), cfg.Root)
	assert.Equal(t, "200ms", cfg.Debounce)
	assert.Equal(t, 256, cfg.CacheSize)
	assert.Equal(t, 5, cfg.MaxFiles)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("KCONFIGMAP_ROOT", "/src/linux/Kconfig")
	t.Setenv("KCONFIGMAP_SRCTREE", "/src/linux")
	t.Setenv("KCONFIGMAP_DEBOUNCE", "1s")

	cfg, err := Load(writeConfig(t, "root: other/Kconfig\n"))
	require.NoError(t, err)
	assert.Equal(t, "/src/linux/Kconfig", cfg.Root)
	assert.Equal(t, "/src/linux", cfg.Srctree)
	assert.Equal(t, "1s", cfg.Debounce)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "root: [unterminated\n"},
		{"bad debounce", "debounce: soon\n"},
		{"negative debounce", "debounce: -1s\n"},
		{"negative max files", "max_files: -1\n"},
		{"negative cache size", "cache_size: -3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLookup(t *testing.T) {
	t.Setenv("KCONFIGMAP_TEST_MACRO", "from-env")

	cfg := Default()
	cfg.Srctree = "/src/linux"
	cfg.Env = map[string]string{"ARCH": "arm64", "KCONFIGMAP_TEST_MACRO": "from-config"}
	lookup := cfg.Lookup()

	v, ok := lookup("ARCH")
	assert.True(t, ok)
	assert.Equal(t, "arm64", v)

	v, ok = lookup("srctree")
	assert.True(t, ok)
	assert.Equal(t, "/src/linux", v)

	v, ok = lookup("KCONFIGMAP_TEST_MACRO")
	assert.True(t, ok)
	assert.Equal(t, "from-config", v)

	_, ok = lookup("KCONFIGMAP_SURELY_UNSET_MACRO")
	assert.False(t, ok)
}

func TestMarshal(t *testing.T) {
	cfg := Default()
	cfg.Exclude = []string{"tools/**"}

	data, err := cfg.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(data), "root: Kconfig")
	assert.Contains(t, string(data), "debounce: 200ms")
	assert.NotContains(t, string(data), "srctree")
}
