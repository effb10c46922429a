package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Defaults.TTL != 64 {
		t.Errorf("TTL = %d, want 64", cfg.Defaults.TTL)
	}
	if cfg.Defaults.Interval != time.Second {
		t.Errorf("Interval = %v, want 1s", cfg.Defaults.Interval)
	}
	if cfg.Defaults.Timeout != 3*time.Second {
		t.Errorf("Timeout = %v, want 3s", cfg.Defaults.Timeout)
	}
	if cfg.Aliases == nil {
		t.Error("Aliases should be initialized, not nil")
	}
}

func TestSaveAndLoadFrom(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rping.yaml")

	cfg := DefaultConfig()
	cfg.Defaults.TTL = 128
	cfg.Aliases["cf"] = "1.1.1.1"

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if loaded.Defaults.TTL != 128 {
		t.Errorf("TTL = %d, want 128", loaded.Defaults.TTL)
	}
	if loaded.Aliases["cf"] != "1.1.1.1" {
		t.Errorf("Aliases[cf] = %q, want 1.1.1.1", loaded.Aliases["cf"])
	}
}

func TestGenerateExampleParsesAsYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rping.yaml")
	if err := os.WriteFile(path, []byte(GenerateExample()), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom(example) failed to parse: %v", err)
	}
	if cfg.Aliases["dns"] != "8.8.8.8" {
		t.Errorf("Aliases[dns] = %q, want 8.8.8.8", cfg.Aliases["dns"])
	}
}
