package codegen

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bindgen.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadOpts(t *testing.T) {
	path := writeConfig(t, `
package = "mybindings"
out_file = "gen.go"
stubs = true
`)

	opts, err := LoadOpts(path)
	if err != nil {
		t.Fatalf("LoadOpts: %v", err)
	}
	if opts.PackageName != "mybindings" {
		t.Errorf("PackageName = %q, want %q", opts.PackageName, "mybindings")
	}
	if opts.OutFile != "gen.go" {
		t.Errorf("OutFile = %q, want %q", opts.OutFile, "gen.go")
	}
	if !opts.Stubs {
		t.Error("Stubs not picked up")
	}
}

func TestLoadOptsPartial(t *testing.T) {
	path := writeConfig(t, `stubs = true`)

	opts, err := LoadOpts(path)
	if err != nil {
		t.Fatalf("LoadOpts: %v", err)
	}
	// unset keys keep their defaults
	if opts.PackageName != "bindings" || opts.OutFile != "bindings.go" {
		t.Errorf("defaults not preserved: %+v", opts)
	}
	if !opts.Stubs {
		t.Error("Stubs not picked up")
	}
}

func TestLoadOptsMissingFile(t *testing.T) {
	if _, err := LoadOpts(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("missing config must fail")
	}
}
