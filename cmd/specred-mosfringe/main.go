// Command specred-mosfringe runs the MOS long-slit fringe-correction
// recipe (sp_fring_corr, §4.5) over a set of science frames sharing the
// same Window table layout family.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/eso-vlt/vimos-specred/internal/config"
	"github.com/eso-vlt/vimos-specred/internal/fsutil"
	"github.com/eso-vlt/vimos-specred/internal/pipedb"
	"github.com/eso-vlt/vimos-specred/internal/security"
	"github.com/eso-vlt/vimos-specred/internal/specred/caltab"
	"github.com/eso-vlt/vimos-specred/internal/specred/fitsio"
	"github.com/eso-vlt/vimos-specred/internal/specred/image"
	"github.com/eso-vlt/vimos-specred/internal/specred/mos"
	"github.com/eso-vlt/vimos-specred/internal/specred/provenance"
	"github.com/eso-vlt/vimos-specred/internal/specred/table"
	"github.com/eso-vlt/vimos-specred/internal/timeutil"
)

const recipeName = "vmmosfringes"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("specred-mosfringe", flag.ContinueOnError)
	configPath := fs.String("config", "", "recipe defaults JSON (optional)")
	pipedbPath := fs.String("pipedb", "pipeline.db", "pipeline database path")
	windowsFlag := fs.String("windows", "", "comma-separated Window table FITS paths, one per input frame")
	outDir := fs.String("out", "", "output directory for corrected frames (required)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	inputs := fs.Args()
	if len(inputs) < 2 || *outDir == "" || *windowsFlag == "" {
		fmt.Fprintln(os.Stderr, "usage: specred-mosfringe -out DIR -windows w1.fits,w2.fits,... frame1.fits frame2.fits [...]")
		return 2
	}
	windowPaths := strings.Split(*windowsFlag, ",")
	if len(windowPaths) != len(inputs) {
		fmt.Fprintf(os.Stderr, "got %d input frames but %d window tables\n", len(inputs), len(windowPaths))
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

	exitStatus := execute(db, clock, runID, cfg, inputs, windowPaths, *outDir)
	if err := provenance.Finish(db, runID, clock, exitStatus, *outDir); err != nil {
		fmt.Fprintf(os.Stderr, "recording run finish: %v\n", err)
	}
	return exitStatus
}

func execute(db *pipedb.DB, clock timeutil.Clock, runID string, cfg *config.RecipeConfig, inputs, windowPaths []string, outDir string) int {
	osfs := fsutil.OSFileSystem{}

	images := make([]*image.Image, len(inputs))
	windows := make([]*caltab.WindowTable, len(inputs))
	refs := make([]provenance.FrameRef, len(inputs))
	for i, path := range inputs {
		f, err := fitsio.Open(osfs, path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "opening %s: %v\n", path, err)
			return 1
		}
		img, err := image.ReadFITS(f)
		if err != nil {
			fmt.Fprintf(os.Stderr, "reading %s: %v\n", path, err)
			return 1
		}
		images[i] = img
		refs[i] = frameRef(path, f)

		t, err := table.Read(osfs, windowPaths[i], caltab.TagWindow)
		if err != nil {
			fmt.Fprintf(os.Stderr, "reading window table %s: %v\n", windowPaths[i], err)
			return 1
		}
		wt := caltab.NewWindowTable()
		wt.Columns = t.Columns
		if err := wt.Unflatten(); err != nil {
			fmt.Fprintf(os.Stderr, "unflattening window table %s: %v\n", windowPaths[i], err)
			return 1
		}
		windows[i] = wt
	}

	params := mos.FringeParams{
		Interpolate: cfg.GetFringeInterpolate(),
		Pixels:      cfg.GetFringePixels(),
	}
	if err := mos.FringeCorrect(images, windows, params); err != nil {
		fmt.Fprintf(os.Stderr, "fringe correction: %v\n", err)
		return 1
	}

	params_ := map[string]string{
		"fringe_interpolate": fmt.Sprintf("%v", params.Interpolate),
		"fringe_pixels":      fmt.Sprintf("%d", params.Pixels),
	}
	for i, path := range inputs {
		productFile := filepath.Join(outDir, filepath.Base(path))
		if err := security.ValidateExportPath(productFile); err != nil {
			fmt.Fprintf(os.Stderr, "output path %s rejected: %v\n", productFile, err)
			return 1
		}
		f, err := fitsio.Open(osfs, productFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "opening output %s: %v\n", productFile, err)
			return 1
		}
		image.WriteFITS(f, images[i])

		in := provenance.Input{
			RecipeName: recipeName,
			ProCatg:    "MOS_SCIENCE_FRINGE_CORRECTED",
			Raw:        []provenance.FrameRef{refs[i]},
			Params:     params_,
			RunID:      runID,
			DRSID:      recipeName,
			PipeID:     provenance.PipeID(),
		}
		if err := provenance.Assemble(f, filepath.Base(productFile), in); err != nil {
			fmt.Fprintf(os.Stderr, "assembling provenance for %s: %v\n", productFile, err)
			return 1
		}
		if err := f.Save(); err != nil {
			fmt.Fprintf(os.Stderr, "saving %s: %v\n", productFile, err)
			return 1
		}
	}
	return 0
}

func frameRef(path string, f *fitsio.File) provenance.FrameRef {
	ref := provenance.FrameRef{Path: path, Category: "SCIENCE", Technique: "MOS"}
	if f.Primary == nil {
		return ref
	}
	ref.Header = f.Primary.Header
	for _, c := range f.Primary.Header {
		if c.Key == "MJD-OBS" {
			if v, ok := c.Value.(float64); ok {
				ref.MJDObs = v
			}
		}
	}
	return ref
}
