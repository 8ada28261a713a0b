package include

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/kconfigmap/internal/document"
	"github.com/phobologic/kconfigmap/internal/model"
)

func writeFiles(t *testing.T, paths ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, p := range paths {
		full := filepath.Join(dir, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("config X\n"), 0o644))
	}
	return dir
}

func newResolver(t *testing.T, base string) *Resolver {
	t.Helper()
	r, err := New(document.NewStore(), base, 0, nil)
	require.NoError(t, err)
	return r
}

func TestTarget(t *testing.T) {
	t.Parallel()
	r := newResolver(t, "/src")
	from := "/src/arch/x86/Kconfig"

	tests := []struct {
		name string
		inc  model.Inclusion
		want string
	}{
		{"source joins base", model.Inclusion{Path: "drivers/Kconfig"}, "/src/drivers/Kconfig"},
		{"rsource joins includer dir", model.Inclusion{Path: "Kconfig.cpu", Relative: true}, "/src/arch/x86/Kconfig.cpu"},
		{"osource joins base", model.Inclusion{Path: "net/Kconfig", Optional: true}, "/src/net/Kconfig"},
		{"parent reference", model.Inclusion{Path: "../Kconfig", Relative: true}, "/src/arch/Kconfig"},
		{"absolute path", model.Inclusion{Path: "/other//Kconfig"}, "/other/Kconfig"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, filepath.FromSlash(tt.want), r.Target(&tt.inc, from))
		})
	}
}

func TestTargetWithoutBase(t *testing.T) {
	t.Parallel()
	r := newResolver(t, "")
	got := r.Target(&model.Inclusion{Path: "sub/Kconfig"}, "/tree/Kconfig")
	assert.Equal(t, filepath.FromSlash("/tree/sub/Kconfig"), got)
	assert.Empty(t, r.Base())
}

func TestResolve(t *testing.T) {
	t.Parallel()
	dir := writeFiles(t, "Kconfig", "drivers/Kconfig")
	r := newResolver(t, dir)
	from := filepath.Join(dir, "Kconfig")

	t.Run("existing", func(t *testing.T) {
		t.Parallel()
		got, diag := r.Resolve(&model.Inclusion{Path: "drivers/Kconfig"}, from)
		assert.Nil(t, diag)
		assert.Equal(t, []string{filepath.Join(dir, "drivers", "Kconfig")}, got)
	})

	t.Run("missing required", func(t *testing.T) {
		t.Parallel()
		rng := model.Range{Start: model.Position{Line: 3, Col: 7}, End: model.Position{Line: 3, Col: 19}}
		got, diag := r.Resolve(&model.Inclusion{Path: "net/Kconfig", Range: rng}, from)
		assert.Empty(t, got)
		require.NotNil(t, diag)
		assert.Equal(t, `source: "net/Kconfig" not found`, diag.Message)
		assert.Equal(t, model.Error, diag.Severity)
		assert.Equal(t, rng, diag.Range)
	})

	t.Run("missing optional", func(t *testing.T) {
		t.Parallel()
		got, diag := r.Resolve(&model.Inclusion{Path: "net/Kconfig", Optional: true, Relative: true}, from)
		assert.Empty(t, got)
		assert.Nil(t, diag)
	})

	t.Run("unresolved macro", func(t *testing.T) {
		t.Parallel()
		_, diag := r.Resolve(&model.Inclusion{Path: "arch/$(SRCARCH)/Kconfig", Relative: true}, from)
		require.NotNil(t, diag)
		assert.Equal(t, `rsource: "arch/$(SRCARCH)/Kconfig" not found (unresolved macro)`, diag.Message)
	})

	t.Run("directory is not a file", func(t *testing.T) {
		t.Parallel()
		_, diag := r.Resolve(&model.Inclusion{Path: "drivers"}, from)
		require.NotNil(t, diag)
	})
}

func TestResolveOpenBuffer(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	docs := document.NewStore()
	path := filepath.Join(dir, "unsaved", "Kconfig")
	docs.Open(path, "config X\n", 1)

	r, err := New(docs, dir, 4, nil)
	require.NoError(t, err)
	got, diag := r.Resolve(&model.Inclusion{Path: "unsaved/Kconfig"}, filepath.Join(dir, "Kconfig"))
	assert.Nil(t, diag)
	assert.Equal(t, []string{path}, got)
}

func TestResolveWildcard(t *testing.T) {
	t.Parallel()
	dir := writeFiles(t,
		"Kconfig",
		"boards/y/Kconfig",
		"boards/x/Kconfig",
		"boards/z/Kconfig.defconfig",
		"boards/deep/er/Kconfig",
	)
	r := newResolver(t, dir)
	from := filepath.Join(dir, "Kconfig")
	inc := &model.Inclusion{Path: "boards/*/Kconfig", Optional: true}

	got, diag := r.Resolve(inc, from)
	assert.Nil(t, diag)
	assert.Equal(t, []string{
		filepath.Join(dir, "boards", "x", "Kconfig"),
		filepath.Join(dir, "boards", "y", "Kconfig"),
	}, got)

	// Expansions are cached until invalidated.
	full := filepath.Join(dir, "boards", "w", "Kconfig")
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte("\n"), 0o644))

	got, _ = r.Resolve(inc, from)
	assert.Len(t, got, 2)

	r.Invalidate()
	got, _ = r.Resolve(inc, from)
	require.Len(t, got, 3)
	assert.Equal(t, full, got[0])
}

func TestResolveWildcardNoMatch(t *testing.T) {
	t.Parallel()
	dir := writeFiles(t, "Kconfig")
	r := newResolver(t, dir)
	from := filepath.Join(dir, "Kconfig")

	got, diag := r.Resolve(&model.Inclusion{Path: "soc/*/Kconfig", Optional: true}, from)
	assert.Empty(t, got)
	assert.Nil(t, diag)

	_, diag = r.Resolve(&model.Inclusion{Path: "soc/*/Kconfig"}, from)
	require.NotNil(t, diag)
	assert.Equal(t, `source: "soc/*/Kconfig" not found`, diag.Message)
}

func TestIsWildcard(t *testing.T) {
	t.Parallel()
	tests := []struct {
		path string
		want bool
	}{
		{"drivers/Kconfig", false},
		{"boards/*/Kconfig", true},
		{"Kconfig.?", true},
		{"arch/[ax]*/Kconfig", true},
		{"arch/$(SRCARCH)/Kconfig", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsWildcard(tt.path), tt.path)
	}
}
