package i18n

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultDictionary(t *testing.T) {
	d := Default()
	if got := d.T("errors.serverError"); got == "errors.serverError" {
		t.Fatalf("expected translation for errors.serverError")
	}
	if got := d.T("status.in_progress"); got != "In progress" {
		t.Fatalf("status.in_progress: got %q", got)
	}
	if got := d.T("no.such.key"); got != "no.such.key" {
		t.Fatalf("unknown key should fall back to key, got %q", got)
	}
}

func TestLoadOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dict.yml")
	if err := os.WriteFile(path, []byte("common:\n  save: Enregistrer\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	d, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := d.T("common.save"); got != "Enregistrer" {
		t.Fatalf("override: got %q", got)
	}
	if got := d.T("common.cancel"); got != "Cancel" {
		t.Fatalf("default kept: got %q", got)
	}
}

func TestLoadMissingFileUsesDefault(t *testing.T) {
	d, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if d.T("common.save") != "Save" {
		t.Fatalf("expected default dictionary")
	}
}

func TestTf(t *testing.T) {
	d := Default()
	if got := d.Tf("labels.page", 2, 5, 42); got != "Page 2 of 5 (42 total)" {
		t.Fatalf("Tf: got %q", got)
	}
}

func TestNilDict(t *testing.T) {
	var d *Dict
	if d.T("a.b") != "a.b" {
		t.Fatalf("nil dict should echo key")
	}
}
