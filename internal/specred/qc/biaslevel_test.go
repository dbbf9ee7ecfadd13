package qc

import (
	"testing"

	"github.com/eso-vlt/vimos-specred/internal/specred/image"
)

func TestCheckBiasLevelWithinTolerance(t *testing.T) {
	img := image.New(3, 3)
	for i := range img.Data {
		img.Data[i] = 100
	}
	result, err := CheckBiasLevel(img, 100, 3, false)
	if err != nil {
		t.Fatalf("CheckBiasLevel: %v", err)
	}
	if !result.Ok {
		t.Fatalf("expected in-tolerance result, got %+v", result)
	}
}

func TestCheckBiasLevelOutOfToleranceFailsStrict(t *testing.T) {
	img := image.New(3, 3)
	vals := []float64{90, 100, 110, 95, 105, 100, 98, 102, 100}
	copy(img.Data, vals)
	if _, err := CheckBiasLevel(img, 500, 1, false); err == nil {
		t.Fatal("expected error for out-of-tolerance bias level in strict mode")
	}
}

func TestCheckBiasLevelOutOfToleranceWarnsOnly(t *testing.T) {
	img := image.New(3, 3)
	vals := []float64{90, 100, 110, 95, 105, 100, 98, 102, 100}
	copy(img.Data, vals)
	result, err := CheckBiasLevel(img, 500, 1, true)
	if err != nil {
		t.Fatalf("CheckBiasLevel in warn-only mode should not error: %v", err)
	}
	if result.Ok {
		t.Fatal("expected Ok=false for an out-of-tolerance level")
	}
}
