// Package config loads the default recipe parameter sets that back the
// CLI surface described for each recipe: boolean toggles, polynomial
// orders, and fit-mode switches that the pipeline database resolves before
// a recipe executes. Parsing of the PAF-based CLI configuration loader
// itself is treated as an external collaborator (out of scope); this
// package only owns the JSON defaults file, whose values the recipe CLIs
// read directly through the Get* accessors.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the canonical recipe-defaults file, the single
// source of truth for every recipe's starting parameter values.
const DefaultConfigPath = "config/recipe.defaults.json"

// RecipeConfig mirrors the parameter set of every recipe this engine backs.
// A field left nil at load time falls back to the Get* default below, so
// partial JSON documents are safe.
type RecipeConfig struct {
	// vmifucalib / IFU kernel
	IFUNIntervals   *int     `json:"ifu_n_intervals,omitempty"`
	IFUHowManyFibs  *int     `json:"ifu_howmanyfibs,omitempty"`
	IFUIntFrac      *float64 `json:"ifu_int_frac,omitempty"`
	IFUWavelengthUnitIsNM *bool `json:"ifu_wavelength_unit_is_nm,omitempty"`

	// vmmosfringes
	FringeInterpolate *bool `json:"fringe_interpolate,omitempty"`
	FringePixels      *int  `json:"fringe_pixels,omitempty"`

	// vmimcalphot
	ComputeExtinction *bool `json:"compute_extinction,omitempty"`
	ComputeColorTerm  *bool `json:"compute_color_term,omitempty"`
	UseColorTerm      *bool `json:"use_color_term,omitempty"`
	FitOrder          *int  `json:"fit_order,omitempty"`
	StrictMode        *bool `json:"strict_mode,omitempty"`

	// QC
	BiasMaxDeviation *float64 `json:"bias_max_deviation,omitempty"`
	WarnOnly         *bool    `json:"warn_only,omitempty"`
}

// EmptyRecipeConfig returns a RecipeConfig with every field nil.
func EmptyRecipeConfig() *RecipeConfig { return &RecipeConfig{} }

// LoadRecipeConfig reads a RecipeConfig from a JSON file, capped at 1MB and
// restricted to the .json extension.
func LoadRecipeConfig(path string) (*RecipeConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := EmptyRecipeConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate rejects out-of-range values before a recipe ever sees them.
func (c *RecipeConfig) Validate() error {
	if c.IFUNIntervals != nil && (*c.IFUNIntervals < 1 || *c.IFUNIntervals > 5) {
		return fmt.Errorf("ifu_n_intervals must be in [1,5], got %d", *c.IFUNIntervals)
	}
	if c.IFUIntFrac != nil && (*c.IFUIntFrac <= 0 || *c.IFUIntFrac > 1) {
		return fmt.Errorf("ifu_int_frac must be in (0,1], got %f", *c.IFUIntFrac)
	}
	if c.FitOrder != nil && *c.FitOrder < 0 {
		return fmt.Errorf("fit_order must be non-negative, got %d", *c.FitOrder)
	}
	return nil
}

// GetIFUNIntervals returns the PSF quantile-bin count, default 5.
func (c *RecipeConfig) GetIFUNIntervals() int {
	if c.IFUNIntervals == nil {
		return 5
	}
	return *c.IFUNIntervals
}

// GetIFUHowManyFibs returns the crosstalk neighbour-fibre radius, default 2.
func (c *RecipeConfig) GetIFUHowManyFibs() int {
	if c.IFUHowManyFibs == nil {
		return 2
	}
	return *c.IFUHowManyFibs
}

// GetIFUIntFrac returns the spectro-photometric flood-fill threshold fraction, default 0.05.
func (c *RecipeConfig) GetIFUIntFrac() float64 {
	if c.IFUIntFrac == nil {
		return 0.05
	}
	return *c.IFUIntFrac
}

// GetIFUWavelengthUnitIsNM reports the configured unit for sky-line
// wavelengths passed to transmission/PSF measurement. See the Å/nm
// open question: the original toggles this per call site rather than
// normalising; we surface it as an explicit, single configuration switch.
func (c *RecipeConfig) GetIFUWavelengthUnitIsNM() bool {
	if c.IFUWavelengthUnitIsNM == nil {
		return false
	}
	return *c.IFUWavelengthUnitIsNM
}

// GetFringeInterpolate returns whether fringe residual gaps are linearly
// interpolated rather than flagged, default true.
func (c *RecipeConfig) GetFringeInterpolate() bool {
	if c.FringeInterpolate == nil {
		return true
	}
	return *c.FringeInterpolate
}

// GetFringePixels returns the padding width around each object window, default 10.
func (c *RecipeConfig) GetFringePixels() int {
	if c.FringePixels == nil {
		return 10
	}
	return *c.FringePixels
}

// GetComputeExtinction reports whether the photometric stage fits extinction, default true.
func (c *RecipeConfig) GetComputeExtinction() bool {
	if c.ComputeExtinction == nil {
		return true
	}
	return *c.ComputeExtinction
}

// GetComputeColorTerm reports whether the photometric stage fits a colour term, default false.
func (c *RecipeConfig) GetComputeColorTerm() bool {
	if c.ComputeColorTerm == nil {
		return false
	}
	return *c.ComputeColorTerm
}

// GetUseColorTerm reports whether a previously-fit colour term is applied, default false.
func (c *RecipeConfig) GetUseColorTerm() bool {
	if c.UseColorTerm == nil {
		return false
	}
	return *c.UseColorTerm
}

// GetFitOrder returns the surface/line fit polynomial order, default 1.
func (c *RecipeConfig) GetFitOrder() int {
	if c.FitOrder == nil {
		return 1
	}
	return *c.FitOrder
}

// GetStrictMode reports whether disabled fits fail the recipe rather than downgrade, default false.
func (c *RecipeConfig) GetStrictMode() bool {
	if c.StrictMode == nil {
		return false
	}
	return *c.StrictMode
}

// GetBiasMaxDeviation returns the bias/dark level tolerance multiplier, default 3.0.
func (c *RecipeConfig) GetBiasMaxDeviation() float64 {
	if c.BiasMaxDeviation == nil {
		return 3.0
	}
	return *c.BiasMaxDeviation
}

// GetWarnOnly reports whether a bias/dark level mismatch only warns, default false.
func (c *RecipeConfig) GetWarnOnly() bool {
	if c.WarnOnly == nil {
		return false
	}
	return *c.WarnOnly
}
