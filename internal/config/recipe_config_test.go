package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recipe.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadRecipeConfigDefaults(t *testing.T) {
	path := writeConfig(t, `{}`)
	cfg, err := LoadRecipeConfig(path)
	if err != nil {
		t.Fatalf("LoadRecipeConfig failed: %v", err)
	}
	if got := cfg.GetIFUNIntervals(); got != 5 {
		t.Errorf("GetIFUNIntervals() = %d, want 5", got)
	}
	if got := cfg.GetComputeExtinction(); got != true {
		t.Errorf("GetComputeExtinction() = %v, want true", got)
	}
	if got := cfg.GetFitOrder(); got != 1 {
		t.Errorf("GetFitOrder() = %d, want 1", got)
	}
}

func TestLoadRecipeConfigOverrides(t *testing.T) {
	path := writeConfig(t, `{"ifu_n_intervals": 3, "compute_color_term": true, "fit_order": 2}`)
	cfg, err := LoadRecipeConfig(path)
	if err != nil {
		t.Fatalf("LoadRecipeConfig failed: %v", err)
	}
	if got := cfg.GetIFUNIntervals(); got != 3 {
		t.Errorf("GetIFUNIntervals() = %d, want 3", got)
	}
	if got := cfg.GetComputeColorTerm(); got != true {
		t.Errorf("GetComputeColorTerm() = %v, want true", got)
	}
	if got := cfg.GetFitOrder(); got != 2 {
		t.Errorf("GetFitOrder() = %d, want 2", got)
	}
}

func TestLoadRecipeConfigValidation(t *testing.T) {
	path := writeConfig(t, `{"ifu_n_intervals": 9}`)
	if _, err := LoadRecipeConfig(path); err == nil {
		t.Fatal("expected validation error for ifu_n_intervals=9")
	}

	path = writeConfig(t, `{"fit_order": -1}`)
	if _, err := LoadRecipeConfig(path); err == nil {
		t.Fatal("expected validation error for negative fit_order")
	}
}

func TestLoadRecipeConfigRejectsNonJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recipe.txt")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRecipeConfig(path); err == nil {
		t.Fatal("expected error for non-.json extension")
	}
}
