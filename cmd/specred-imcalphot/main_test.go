package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeExposuresFile(t *testing.T, path string) {
	t.Helper()
	files := []exposureFile{
		{Image: "exp1.fits", Airmass: 1.1, Stars: []struct {
			StarID  int     `json:"star_id"`
			CatMag  float64 `json:"cat_mag"`
			Colour  float64 `json:"colour"`
			InstMag float64 `json:"inst_mag"`
		}{
			{StarID: 1, CatMag: 15.0, Colour: 0.5, InstMag: -5.0},
			{StarID: 2, CatMag: 16.0, Colour: 0.6, InstMag: -4.1},
		}},
		{Image: "exp2.fits", Airmass: 1.3, Stars: []struct {
			StarID  int     `json:"star_id"`
			CatMag  float64 `json:"cat_mag"`
			Colour  float64 `json:"colour"`
			InstMag float64 `json:"inst_mag"`
		}{
			{StarID: 1, CatMag: 15.0, Colour: 0.5, InstMag: -4.8},
			{StarID: 2, CatMag: 16.0, Colour: 0.6, InstMag: -3.9},
		}},
	}
	raw, err := json.Marshal(files)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestRunFitsZeropointAndWritesTable(t *testing.T) {
	dir := t.TempDir()
	exposuresPath := filepath.Join(dir, "exposures.json")
	outPath := filepath.Join(dir, "photometric.fits")
	writeExposuresFile(t, exposuresPath)

	args := []string{
		"-pipedb", filepath.Join(dir, "pipeline.db"),
		"-exposures", exposuresPath,
		"-out", outPath,
	}
	if code := run(args); code != 0 {
		t.Fatalf("run() = %d, want 0", code)
	}
	if _, err := os.Stat(outPath); err != nil {
		t.Fatalf("expected output file: %v", err)
	}
}

func TestRunRejectsMissingExposures(t *testing.T) {
	dir := t.TempDir()
	args := []string{"-out", filepath.Join(dir, "out.fits")}
	if code := run(args); code != 2 {
		t.Fatalf("run() = %d, want 2", code)
	}
}

func TestRunRequiresPriorPhotometricWithUseColourTerm(t *testing.T) {
	dir := t.TempDir()
	exposuresPath := filepath.Join(dir, "exposures.json")
	writeExposuresFile(t, exposuresPath)
	args := []string{
		"-pipedb", filepath.Join(dir, "pipeline.db"),
		"-exposures", exposuresPath,
		"-out", filepath.Join(dir, "out.fits"),
		"-use-colour-term",
	}
	if code := run(args); code != 2 {
		t.Fatalf("run() = %d, want 2", code)
	}
}
