// Command specred-imcalphot runs vmimcalphot (§4.6): it fits a
// photometric zeropoint, and optionally extinction and colour-term
// coefficients, from a set of star-match exposures.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/eso-vlt/vimos-specred/internal/config"
	"github.com/eso-vlt/vimos-specred/internal/fsutil"
	"github.com/eso-vlt/vimos-specred/internal/pipedb"
	"github.com/eso-vlt/vimos-specred/internal/security"
	"github.com/eso-vlt/vimos-specred/internal/specred/caltab"
	"github.com/eso-vlt/vimos-specred/internal/specred/mos"
	"github.com/eso-vlt/vimos-specred/internal/specred/provenance"
	"github.com/eso-vlt/vimos-specred/internal/specred/table"
	"github.com/eso-vlt/vimos-specred/internal/timeutil"
)

const recipeName = "vmimcalphot"

// exposureFile is the JSON shape accepted by -exposures: one entry per
// star-match table, mirroring mos.Exposure/mos.StarObservation.
type exposureFile struct {
	Image   string  `json:"image"`
	Airmass float64 `json:"airmass"`
	Stars   []struct {
		StarID  int     `json:"star_id"`
		CatMag  float64 `json:"cat_mag"`
		Colour  float64 `json:"colour"`
		InstMag float64 `json:"inst_mag"`
	} `json:"stars"`
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("specred-imcalphot", flag.ContinueOnError)
	configPath := fs.String("config", "", "recipe defaults JSON (optional)")
	pipedbPath := fs.String("pipedb", "pipeline.db", "pipeline database path")
	exposuresPath := fs.String("exposures", "", "JSON file listing star-match exposures (required)")
	outPath := fs.String("out", "", "output Photometric table FITS path (required)")
	computeExtinction := fs.Bool("extinction", false, "fit the extinction coefficient")
	computeColorTerm := fs.Bool("colour-term", false, "fit the colour-term coefficient")
	useColorTerm := fs.Bool("use-colour-term", false, "apply a previously fitted colour term instead of refitting it")
	priorPhotometric := fs.String("prior-photometric", "", "Photometric table FITS path supplying the colour term when -use-colour-term is set")
	fitOrder := fs.Int("fit-order", 1, "polynomial fit order")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *exposuresPath == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: specred-imcalphot -exposures exposures.json -out photometric.fits")
		return 2
	}

	cfg := config.EmptyRecipeConfig()
	if *configPath != "" {
		loaded, err := config.LoadRecipeConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
			return 1
		}
		cfg = loaded
	}
	fitOrderSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "fit-order" {
			fitOrderSet = true
		}
	})
	if !fitOrderSet {
		*fitOrder = cfg.GetFitOrder()
	}

	db, err := pipedb.NewDB(*pipedbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening pipeline database: %v\n", err)
		return 1
	}
	defer db.Close()

	clock := timeutil.RealClock{}
	runID, err := provenance.NewRunID(db, recipeName, clock)
	if err != nil {
		fmt.Fprintf(os.Stderr, "starting run: %v\n", err)
		return 1
	}

	exitStatus := execute(cfg, *exposuresPath, *outPath, runID, *computeExtinction, *computeColorTerm, *useColorTerm, *priorPhotometric, *fitOrder)
	if err := provenance.Finish(db, runID, clock, exitStatus, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "recording run finish: %v\n", err)
	}
	return exitStatus
}

func execute(cfg *config.RecipeConfig, exposuresPath, outPath, runID string, computeExtinction, computeColorTerm, useColorTerm bool, priorPhotometricPath string, fitOrder int) int {
	raw, err := os.ReadFile(exposuresPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading %s: %v\n", exposuresPath, err)
		return 1
	}
	var files []exposureFile
	if err := json.Unmarshal(raw, &files); err != nil {
		fmt.Fprintf(os.Stderr, "parsing %s: %v\n", exposuresPath, err)
		return 1
	}

	exposures := make([]mos.Exposure, len(files))
	for i, ef := range files {
		stars := make([]mos.StarObservation, len(ef.Stars))
		for j, s := range ef.Stars {
			stars[j] = mos.StarObservation{StarID: s.StarID, CatMag: s.CatMag, Colour: s.Colour, InstMag: s.InstMag}
		}
		exposures[i] = mos.Exposure{Image: ef.Image, Airmass: ef.Airmass, Stars: stars}
	}

	if (useColorTerm || cfg.GetUseColorTerm()) && !computeColorTerm {
		if priorPhotometricPath == "" {
			fmt.Fprintln(os.Stderr, "-use-colour-term requires -prior-photometric")
			return 2
		}
		prior, err := table.Read(fsutil.OSFileSystem{}, priorPhotometricPath, caltab.TagPhotometric)
		if err != nil {
			fmt.Fprintf(os.Stderr, "reading prior photometric table %s: %v\n", priorPhotometricPath, err)
			return 1
		}
		priorTab := &caltab.PhotometricTable{Table: prior}
		_, _, _, priorColourTerm, _, err := priorTab.Coefficients()
		if err != nil {
			fmt.Fprintf(os.Stderr, "reading prior colour term: %v\n", err)
			return 1
		}
		for i := range exposures {
			for j, s := range exposures[i].Stars {
				exposures[i].Stars[j].InstMag = mos.ApplyColorTerm(s.InstMag, s.Colour, priorColourTerm)
			}
		}
	}

	params := mos.FitParams{
		ComputeExtinction: computeExtinction || cfg.GetComputeExtinction(),
		ComputeColorTerm:  computeColorTerm || cfg.GetComputeColorTerm(),
		FitOrder:          fitOrder,
		StrictMode:        cfg.GetStrictMode(),
	}
	photTab, err := mos.FitZeropoint(exposures, params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fitting zeropoint: %v\n", err)
		return 1
	}
	if err := photTab.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "validating photometric table: %v\n", err)
		return 1
	}
	if err := photTab.Flatten(); err != nil {
		fmt.Fprintf(os.Stderr, "flattening photometric table: %v\n", err)
		return 1
	}

	if err := security.ValidateExportPath(outPath); err != nil {
		fmt.Fprintf(os.Stderr, "output path %s rejected: %v\n", outPath, err)
		return 1
	}
	if err := table.Write(fsutil.OSFileSystem{}, outPath, photTab.Table); err != nil {
		fmt.Fprintf(os.Stderr, "writing %s: %v\n", outPath, err)
		return 1
	}

	magZero, extinction, colour, colourTerm, rms, err := photTab.Coefficients()
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading back coefficients: %v\n", err)
		return 1
	}
	fmt.Printf("magzero=%.6f extinction=%.6f colour=%.6f colourterm=%.6f rms=%.6f stars=%d\n",
		magZero, extinction, colour, colourTerm, rms, len(photTab.Stars()))
	return 0
}
