// Command specred-ifucalib runs ifu_cal_phot (§4.4.9): it reconstructs
// all 4 quadrants' fibre geometry, integrates all 6400 fibres, flood-fills
// the combined integrated-flux map to recover the reference star's
// scattered light, and hands the corrected reference spectrum to the MOS
// spectro-photometric fit.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/eso-vlt/vimos-specred/internal/config"
	"github.com/eso-vlt/vimos-specred/internal/fsutil"
	"github.com/eso-vlt/vimos-specred/internal/pipedb"
	"github.com/eso-vlt/vimos-specred/internal/security"
	"github.com/eso-vlt/vimos-specred/internal/specred/caltab"
	"github.com/eso-vlt/vimos-specred/internal/specred/fitsio"
	"github.com/eso-vlt/vimos-specred/internal/specred/ifu"
	"github.com/eso-vlt/vimos-specred/internal/specred/image"
	"github.com/eso-vlt/vimos-specred/internal/specred/mos"
	"github.com/eso-vlt/vimos-specred/internal/specred/provenance"
	"github.com/eso-vlt/vimos-specred/internal/specred/table"
	"github.com/eso-vlt/vimos-specred/internal/timeutil"
)

const recipeName = "vmifucalphot"

// geometryFile is the JSON shape accepted by -geometry: the quadrant's
// reference fibre and its four pseudo-slits' layouts, mirroring
// ifu.SlitGeometry.
type geometryFile struct {
	Quadrant int `json:"quadrant"`
	RefL     int `json:"ref_l"`
	RefM     int `json:"ref_m"`
	Slits    [caltab.SlitsPerQuadrant]struct {
		StartL      int     `json:"start_l"`
		StartM      int     `json:"start_m"`
		FibreLStep  int     `json:"fibre_l_step"`
		ModuleMStep int     `json:"module_m_step"`
		StartX      float64 `json:"start_x"`
		FibreXStep  float64 `json:"fibre_x_step"`
		Y           float64 `json:"y"`
		ModuleXGap  float64 `json:"module_x_gap"`
	} `json:"slits"`
}

// fluxPoint is one row of a -standard catalogue file.
type fluxPoint struct {
	Wave float64 `json:"wave"`
	Flux float64 `json:"flux"`
	Bin  float64 `json:"bin"`
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("specred-ifucalib", flag.ContinueOnError)
	configPath := fs.String("config", "", "recipe defaults JSON (optional)")
	pipedbPath := fs.String("pipedb", "pipeline.db", "pipeline database path")
	geometryPaths := fs.String("geometry", "", fmt.Sprintf("comma-separated list of %d JSON quadrant/slit geometry files, one per quadrant (required)", ifu.QuadrantsPerIFU))
	spectraPaths := fs.String("spectra", "", fmt.Sprintf("comma-separated list of %d FITS images of per-fibre spectra, one per quadrant, each one row per fibre (required)", ifu.QuadrantsPerIFU))
	standardPath := fs.String("standard", "", "JSON standard-star flux catalogue (required)")
	waveStart := fs.Float64("wave-start", 0, "wavelength of the spectra image's first column")
	waveStep := fs.Float64("wave-step", 1, "wavelength increment per spectra image column")
	imageName := fs.String("image", "", "science frame name recorded in the Photometric table (required)")
	starID := fs.Int("star-id", 1, "star identifier recorded in the Photometric table")
	intFrac := fs.Float64("int-frac", 0, "flood-fill threshold fraction of the peak (0 uses the config/recipe default)")
	fitOrder := fs.Int("fit-order", 1, "polynomial fit order passed through to the MOS calibration")
	outPath := fs.String("out", "", "output Photometric table FITS path (required)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *geometryPaths == "" || *spectraPaths == "" || *standardPath == "" || *imageName == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: specred-ifucalib -geometry q1.json,q2.json,q3.json,q4.json -spectra q1.fits,q2.fits,q3.fits,q4.fits -standard flux.json -image NAME -out photometric.fits")
		return 2
	}
	geometryList := strings.Split(*geometryPaths, ",")
	spectraList := strings.Split(*spectraPaths, ",")
	if len(geometryList) != ifu.QuadrantsPerIFU || len(spectraList) != ifu.QuadrantsPerIFU {
		fmt.Fprintf(os.Stderr, "-geometry and -spectra each require %d comma-separated paths (one per quadrant), got %d and %d\n",
			ifu.QuadrantsPerIFU, len(geometryList), len(spectraList))
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

	opts := cliOptions{
		geometryPaths: geometryList,
		spectraPaths:  spectraList,
		standardPath:  *standardPath,
		waveStart:     *waveStart,
		waveStep:      *waveStep,
		imageName:     *imageName,
		starID:        *starID,
		intFrac:       *intFrac,
		fitOrder:      *fitOrder,
		outPath:       *outPath,
	}
	exitStatus := execute(cfg, opts)
	if err := provenance.Finish(db, runID, clock, exitStatus, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "recording run finish: %v\n", err)
	}
	return exitStatus
}

type cliOptions struct {
	geometryPaths, spectraPaths []string
	standardPath                string
	waveStart, waveStep         float64
	imageName                   string
	starID                      int
	intFrac                     float64
	fitOrder                    int
	outPath                     string
}

func execute(cfg *config.RecipeConfig, opts cliOptions) int {
	osfs := fsutil.OSFileSystem{}

	ifuTabs := make([]*caltab.IFUTable, ifu.QuadrantsPerIFU)
	spectraSets := make([][][]float64, ifu.QuadrantsPerIFU)
	var wave []float64

	for q := 0; q < ifu.QuadrantsPerIFU; q++ {
		var geom geometryFile
		raw, err := os.ReadFile(opts.geometryPaths[q])
		if err != nil {
			fmt.Fprintf(os.Stderr, "reading %s: %v\n", opts.geometryPaths[q], err)
			return 1
		}
		if err := json.Unmarshal(raw, &geom); err != nil {
			fmt.Fprintf(os.Stderr, "parsing %s: %v\n", opts.geometryPaths[q], err)
			return 1
		}

		ifuTab := caltab.NewIFUTable(geom.Quadrant, geom.RefL, geom.RefM)
		for i, sg := range geom.Slits {
			slitNumber := i + 1
			fibres := ifu.ComputeSlit(slitNumber, ifu.SlitGeometry{
				StartL: sg.StartL, StartM: sg.StartM,
				FibreLStep: sg.FibreLStep, ModuleMStep: sg.ModuleMStep,
				StartX: sg.StartX, FibreXStep: sg.FibreXStep,
				Y: sg.Y, ModuleXGap: sg.ModuleXGap,
			})
			for seq, fib := range fibres {
				if err := ifuTab.SetFibre(i*caltab.FibresPerSlit+seq, fib); err != nil {
					fmt.Fprintf(os.Stderr, "quadrant %d: setting fibre %d/%d: %v\n", q, slitNumber, seq, err)
					return 1
				}
			}
		}
		if err := ifuTab.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "quadrant %d: validating IFU table: %v\n", q, err)
			return 1
		}
		ifuTabs[q] = ifuTab

		specFile, err := fitsio.Open(osfs, opts.spectraPaths[q])
		if err != nil {
			fmt.Fprintf(os.Stderr, "opening %s: %v\n", opts.spectraPaths[q], err)
			return 1
		}
		specImg, err := image.ReadFITS(specFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "reading %s: %v\n", opts.spectraPaths[q], err)
			return 1
		}
		if specImg.NY != caltab.FibresPerQuadrant {
			fmt.Fprintf(os.Stderr, "quadrant %d: spectra image has %d rows, want %d (one per fibre)\n", q, specImg.NY, caltab.FibresPerQuadrant)
			return 1
		}
		spectra := make([][]float64, specImg.NY)
		if q == 0 {
			wave = make([]float64, specImg.NX)
			for x := 0; x < specImg.NX; x++ {
				wave[x] = opts.waveStart + float64(x)*opts.waveStep
			}
		}
		for y := 0; y < specImg.NY; y++ {
			row := make([]float64, specImg.NX)
			for x := 0; x < specImg.NX; x++ {
				v, err := specImg.At(x, y)
				if err != nil {
					fmt.Fprintf(os.Stderr, "quadrant %d: reading spectra row %d: %v\n", q, y, err)
					return 1
				}
				row[x] = v
			}
			spectra[y] = row
		}
		spectraSets[q] = spectra
	}

	var points []fluxPoint
	raw, err := os.ReadFile(opts.standardPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading %s: %v\n", opts.standardPath, err)
		return 1
	}
	if err := json.Unmarshal(raw, &points); err != nil {
		fmt.Fprintf(os.Stderr, "parsing %s: %v\n", opts.standardPath, err)
		return 1
	}
	std := caltab.NewStandardFluxTable()
	for _, p := range points {
		std.AddPoint(p.Wave, p.Flux, p.Bin)
	}
	if err := std.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "validating standard-flux table: %v\n", err)
		return 1
	}

	photTab := caltab.NewPhotometricTable(0, 0, 0, 0, 0)
	fitPhot := mos.CalPhotCallback(wave, std, photTab, opts.imageName, opts.starID)

	intFrac := opts.intFrac
	if intFrac <= 0 {
		intFrac = cfg.GetIFUIntFrac()
	}
	result, err := ifu.CalPhot(ifuTabs, spectraSets, ifu.CalPhotParams{IntFrac: intFrac, FitOrder: opts.fitOrder}, fitPhot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "running ifu_cal_phot: %v\n", err)
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
	if err := security.ValidateExportPath(opts.outPath); err != nil {
		fmt.Fprintf(os.Stderr, "output path %s rejected: %v\n", opts.outPath, err)
		return 1
	}
	if err := table.Write(osfs, opts.outPath, photTab.Table); err != nil {
		fmt.Fprintf(os.Stderr, "writing %s: %v\n", opts.outPath, err)
		return 1
	}

	fmt.Printf("reference fibre quadrant=%d index=%d fraction=%.6f zeropoints=%d\n",
		result.PeakQuadrant, result.PeakIdx, result.Fraction, len(photTab.Stars()))
	return 0
}
