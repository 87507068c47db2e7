package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Strategy != "auto" {
		t.Errorf("strategy = %q, want auto", cfg.Strategy)
	}
	if cfg.MaxConcurrent != 15 {
		t.Errorf("max concurrent = %d, want 15", cfg.MaxConcurrent)
	}
	if cfg.RequestDelay != 100*time.Millisecond {
		t.Errorf("request delay = %v", cfg.RequestDelay)
	}
	if cfg.OutputFile != "documentation.md" {
		t.Errorf("output = %q", cfg.OutputFile)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestValidateRejectsUnknownStrategy(t *testing.T) {
	cfg := Load()
	cfg.Strategy = "telepathy"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func TestApplyFileOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bookstitch.yaml")
	data := []byte("strategy: sitemap\nmax_concurrent: 5\nuse_browser: false\noutput: out.md\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Load()
	if err := cfg.ApplyFile(path); err != nil {
		t.Fatalf("ApplyFile: %v", err)
	}

	if cfg.Strategy != "sitemap" {
		t.Errorf("strategy = %q", cfg.Strategy)
	}
	if cfg.MaxConcurrent != 5 {
		t.Errorf("max concurrent = %d", cfg.MaxConcurrent)
	}
	if cfg.UseBrowser {
		t.Error("use_browser overlay not applied")
	}
	if cfg.OutputFile != "out.md" {
		t.Errorf("output = %q", cfg.OutputFile)
	}
	// Fields absent from the file keep their defaults.
	if cfg.WorkerCount != 2 {
		t.Errorf("workers = %d, want default", cfg.WorkerCount)
	}
}

func TestApplyFileMissingIsNoop(t *testing.T) {
	cfg := Load()
	if err := cfg.ApplyFile(filepath.Join(t.TempDir(), "absent.yaml")); err != nil {
		t.Errorf("missing file should not error: %v", err)
	}
}
