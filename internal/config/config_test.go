package config

import (
	"os"
	"path/filepath"
	"testing"

	"taskline/internal/domain"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Defaults.Task.Priority != domain.PriorityMedium || cfg.Defaults.Task.Status != domain.StatusPending {
		t.Fatalf("unexpected template defaults: %s/%s", cfg.Defaults.Task.Priority, cfg.Defaults.Task.Status)
	}
}

func TestFromYAMLOverlaysTaskDefaults(t *testing.T) {
	cfg, err := FromYAML([]byte("defaults:\n  task:\n    priority: High\n    status: in-progress\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Defaults.Task.Priority != domain.PriorityHigh || cfg.Defaults.Task.Status != domain.StatusInProgress {
		t.Fatalf("overlay lost: %s/%s", cfg.Defaults.Task.Priority, cfg.Defaults.Task.Status)
	}
	// untouched sections keep the template values
	if cfg.Server.BasePath != "/v1" {
		t.Fatalf("base_path should keep its default, got %q", cfg.Server.BasePath)
	}
}

func TestFromYAMLRejectsBadDefaults(t *testing.T) {
	if _, err := FromYAML([]byte("defaults:\n  task:\n    priority: Urgent\n")); err == nil {
		t.Fatalf("unknown priority should fail validation")
	}
	if _, err := FromYAML([]byte("defaults:\n  task:\n    status: done\n")); err == nil {
		t.Fatalf("unknown status should fail validation")
	}
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yml")
	if err := os.WriteFile(path, []byte("defaults:\n  task:\n    priority: Low\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := FromFile(path)
	if err != nil {
		t.Fatalf("from file: %v", err)
	}
	if cfg.Defaults.Task.Priority != domain.PriorityLow {
		t.Fatalf("expected Low, got %q", cfg.Defaults.Task.Priority)
	}
	if _, err := FromFile(filepath.Join(dir, "missing.yml")); err == nil {
		t.Fatalf("missing file should error")
	}
}
