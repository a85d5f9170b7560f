package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Segmentation.TargetRegions != 400 {
		t.Errorf("Expected 400 target regions, got %d", cfg.Segmentation.TargetRegions)
	}
	if cfg.Segmentation.Compactness != 10.0 {
		t.Errorf("Expected compactness 10.0, got %f", cfg.Segmentation.Compactness)
	}
	if cfg.Segmentation.Iterations != 10 {
		t.Errorf("Expected 10 iterations, got %d", cfg.Segmentation.Iterations)
	}
	if cfg.Segmentation.Criterion != "mumford-shah" {
		t.Errorf("Expected criterion mumford-shah, got %s", cfg.Segmentation.Criterion)
	}
	if cfg.Segmentation.Workers <= 0 {
		t.Errorf("Expected positive worker count, got %d", cfg.Segmentation.Workers)
	}
	if cfg.Render.Style != "mean-color" {
		t.Errorf("Expected style mean-color, got %s", cfg.Render.Style)
	}
	if cfg.Output.Verbose {
		t.Error("Expected verbose off by default")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Missing file should fall back to defaults, got %v", err)
	}
	if cfg.Segmentation.TargetRegions != DefaultConfig().Segmentation.TargetRegions {
		t.Error("Expected default configuration for a missing file")
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Segmentation.TargetRegions = 123
	cfg.Segmentation.Criterion = "color"
	cfg.Render.Style = "contours"
	cfg.Output.Verbose = true

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Segmentation.TargetRegions != 123 {
		t.Errorf("Expected 123 target regions, got %d", loaded.Segmentation.TargetRegions)
	}
	if loaded.Segmentation.Criterion != "color" {
		t.Errorf("Expected criterion color, got %s", loaded.Segmentation.Criterion)
	}
	if loaded.Render.Style != "contours" {
		t.Errorf("Expected style contours, got %s", loaded.Render.Style)
	}
	if !loaded.Output.Verbose {
		t.Error("Expected verbose on after roundtrip")
	}
}

func TestLoadConfigPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	partial := "segmentation:\n  targetRegions: 50\n"
	if err := os.WriteFile(path, []byte(partial), 0644); err != nil {
		t.Fatalf("Writing fixture failed: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Segmentation.TargetRegions != 50 {
		t.Errorf("Expected overridden target regions 50, got %d", cfg.Segmentation.TargetRegions)
	}
	// Unmentioned fields keep their defaults.
	if cfg.Render.Style != "mean-color" {
		t.Errorf("Expected default style, got %s", cfg.Render.Style)
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("segmentation: ["), 0644); err != nil {
		t.Fatalf("Writing fixture failed: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected an error for malformed YAML")
	}
}

func TestCreateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	if err := CreateDefaultConfigFile(path); err != nil {
		t.Fatalf("CreateDefaultConfigFile failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Expected config file on disk: %v", err)
	}
}
