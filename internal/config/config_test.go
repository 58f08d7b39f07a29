package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultTemplateParses(t *testing.T) {
	cfg := Default("proj-1")
	if cfg.Project.ID != "proj-1" {
		t.Fatalf("project id = %q", cfg.Project.ID)
	}
	if cfg.Server.Timeout != 10*time.Second || cfg.Dev.TokenTTL != 12*time.Hour {
		t.Fatalf("durations not decoded: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestFromYAMLKeepsDefaults(t *testing.T) {
	cfg, err := FromYAML([]byte("list:\n  page_size: 5\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.List.PageSize != 5 {
		t.Fatalf("page size = %d", cfg.List.PageSize)
	}
	if cfg.Server.BaseURL == "" || cfg.Notifications.Duration != 5*time.Second {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestFromYAMLRejects(t *testing.T) {
	cases := map[string]string{
		"unknown key": "nope: 1\n",
		"page size":   "list:\n  page_size: 0\n",
		"base url":    "server:\n  base_url: ftp://x\n",
	}
	for name, doc := range cases {
		if _, err := FromYAML([]byte(doc)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoadOptional(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadOptional(dir)
	if err != nil || cfg == nil {
		t.Fatalf("missing file: cfg=%v err=%v", cfg, err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(GenerateDefault("p2")), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = LoadOptional(dir)
	if err != nil || cfg.Project.ID != "p2" {
		t.Fatalf("load: cfg=%+v err=%v", cfg, err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("list: [\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadOptional(dir); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestMarshalRoundTrips(t *testing.T) {
	cfg := Default("p3")
	out, err := cfg.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "timeout: 10s") {
		t.Fatalf("duration not rendered as string:\n%s", out)
	}
	back, err := FromYAML(out)
	if err != nil {
		t.Fatal(err)
	}
	if back.Project.ID != "p3" || back.Dev.InvitationTTL != 168*time.Hour {
		t.Fatalf("round trip: %+v", back)
	}
}
