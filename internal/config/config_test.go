package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidateRejectsUnknownMode(t *testing.T) {
	cfg := Default()
	cfg.Mode = Mode("bogus")
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestLoadFileOverlayAppliesKnownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pasta.toml")
	contents := "sanity_checks = true\ninput_queue_capacity = 128\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFileOverlay(Default(), path)
	if err != nil {
		t.Fatalf("LoadFileOverlay: %v", err)
	}
	if !cfg.SanityChecks {
		t.Fatalf("expected sanity_checks=true from file")
	}
	if cfg.InputQCapacity != 128 {
		t.Fatalf("expected input_queue_capacity=128, got %d", cfg.InputQCapacity)
	}
	if cfg.StatsQCapacity != Default().StatsQCapacity {
		t.Fatalf("expected unset stats_queue_capacity to keep default, got %d", cfg.StatsQCapacity)
	}
}

func TestLoadFileOverlayNoPathIsNoop(t *testing.T) {
	cfg, err := LoadFileOverlay(Default(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("expected unchanged config when path is empty")
	}
}
