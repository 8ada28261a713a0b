package toon

import (
	"strings"
	"testing"

	"github.com/phobologic/kconfigmap/internal/model"
)

func TestEncodeValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", `""`},
		{"simple", "hello", "hello"},
		{"leading space", " hello", `" hello"`},
		{"trailing space", "hello ", `"hello "`},
		{"newline", "a\nb", `"a\nb"`},
		{"tab", "a\tb", `"a\tb"`},
		{"carriage return", "a\rb", `"a\rb"`},
		{"true keyword", "true", `"true"`},
		{"True keyword", "True", `"True"`},
		{"false keyword", "false", `"false"`},
		{"null keyword", "null", `"null"`},
		{"integer", "42", "42"},
		{"negative integer", "-1", "-1"},
		{"float", "3.14", "3.14"},
		{"zero", "0", "0"},
		{"leading zero invalid", "01", "01"},
		{"comma", "a,b", `"a,b"`},
		{"colon", "a:b", `"a:b"`},
		{"quote", `a"b`, `"a\"b"`},
		{"backslash", `a\b`, `"a\\b"`},
		{"bracket", "a[b", `"a[b"`},
		{"brace", "a{b", `"a{b"`},
		{"dash prefix", "-foo", `"-foo"`},
		{"path", "drivers/net/Kconfig", "drivers/net/Kconfig"},
		{"symbol", "NET_VENDOR_INTEL", "NET_VENDOR_INTEL"},
		{"prompt", "Enable networking (EXPERIMENTAL)", "Enable networking (EXPERIMENTAL)"},
		{"hex", "0x1000", "0x1000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := encodeValue(tt.in)
			if got != tt.want {
				t.Errorf("encodeValue(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEncode(t *testing.T) {
	t.Parallel()

	rm := &model.RepoMap{
		Name: "linux",
		Root: "Kconfig",
		Files: []model.FileInfo{
			{
				Path: "Kconfig",
				Rank: 0.25,
				Tags: []model.Tag{
					{Name: "NET", Kind: model.Definition, Entry: model.MenuConfig, Type: model.Bool, Line: 3, Prompt: "Networking support"},
					{Name: "PCI", Kind: model.Reference, Line: 3},
				},
				Includes: []string{"drivers/Kconfig"},
			},
			{
				Path:   "drivers/Kconfig",
				Rank:   0.75,
				Errors: 1,
				Tags: []model.Tag{
					{Name: "PCI", Kind: model.Definition, Entry: model.Config, Type: model.Bool, Line: 1, Prompt: "PCI support"},
				},
			},
		},
		Edges: []model.Edge{
			{Source: "Kconfig", Target: "drivers/Kconfig", Include: true, Symbols: []string{"PCI"}},
		},
		Diagnostics: []model.FileDiagnostic{
			{
				Path: "drivers/Kconfig",
				Diagnostic: model.Diagnostic{
					Range:    model.LineRange(4, 4),
					Message:  "invalid token \"bogus\"",
					Severity: model.Error,
				},
			},
		},
	}

	got := Encode(rm)

	want := []string{
		"tree: linux",
		"root: Kconfig",
		"files[2]{path,rank,errors}:",
		"  Kconfig,0.2500,0",
		"  drivers/Kconfig,0.7500,1",
		"symbols[2]{file,name,entry,type,line,prompt}:",
		"  Kconfig,NET,menuconfig,bool,3,Networking support",
		"  drivers/Kconfig,PCI,config,bool,1,PCI support",
		"edges[1]{source,target,kind,symbols}:",
		"  Kconfig,drivers/Kconfig,both,PCI",
		"diagnostics[1]{file,line,severity,message}:",
		`  drivers/Kconfig,5,error,"invalid token \"bogus\""`,
	}
	lines := strings.Split(got, "\n")
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), got)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: got %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestEncodeEdgeKinds(t *testing.T) {
	t.Parallel()

	rm := &model.RepoMap{
		Name: "t",
		Root: "Kconfig",
		Edges: []model.Edge{
			{Source: "a", Target: "b", Include: true},
			{Source: "a", Target: "c", Symbols: []string{"X", "Y"}},
		},
	}

	got := Encode(rm)
	if !strings.Contains(got, "  a,b,include,\"\"") {
		t.Errorf("missing include edge:\n%s", got)
	}
	if !strings.Contains(got, "  a,c,symbol,X Y") {
		t.Errorf("missing symbol edge:\n%s", got)
	}
}

func TestEncodeEmpty(t *testing.T) {
	t.Parallel()

	rm := &model.RepoMap{
		Name: "empty",
		Root: "Kconfig",
	}

	got := Encode(rm)
	if !strings.Contains(got, "files[0]{path,rank,errors}:") {
		t.Errorf("expected empty files section, got:\n%s", got)
	}
	if !strings.Contains(got, "symbols[0]{file,name,entry,type,line,prompt}:") {
		t.Errorf("expected empty symbols section, got:\n%s", got)
	}
	if strings.Contains(got, "diagnostics[") {
		t.Errorf("diagnostics section should be omitted when empty, got:\n%s", got)
	}
}
