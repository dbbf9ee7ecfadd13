// Command specred-ifumap renders a reconstructed IFU map FITS image
// (ifu_2d_image, §4.4.8) as a PNG heat map, a derived QC diagnostic
// rather than a raw-frame viewer.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/eso-vlt/vimos-specred/internal/fsutil"
	"github.com/eso-vlt/vimos-specred/internal/security"
	"github.com/eso-vlt/vimos-specred/internal/specred/fitsio"
	"github.com/eso-vlt/vimos-specred/internal/specred/image"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ifuGrid adapts an image.Image to plotter.GridXYZ so its (L,M) pixel
// grid can be rendered directly, without copying into an intermediate
// matrix.
type ifuGrid struct {
	img *image.Image
}

func (g ifuGrid) Dims() (c, r int)  { return g.img.NX, g.img.NY }
func (g ifuGrid) X(c int) float64   { return float64(c) }
func (g ifuGrid) Y(r int) float64   { return float64(r) }
func (g ifuGrid) Z(c, r int) float64 {
	v, _ := g.img.At(c, r)
	return v
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("specred-ifumap", flag.ContinueOnError)
	inPath := fs.String("in", "", "input IFU map FITS image, e.g. from ifu.Image2D (required)")
	outPath := fs.String("out", "", "output PNG path (required)")
	title := fs.String("title", "IFU map", "plot title")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *inPath == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: specred-ifumap -in map.fits -out map.png")
		return 2
	}
	return execute(*inPath, *outPath, *title)
}

func execute(inPath, outPath, title string) int {
	osfs := fsutil.OSFileSystem{}
	f, err := fitsio.Open(osfs, inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening %s: %v\n", inPath, err)
		return 1
	}
	img, err := image.ReadFITS(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading %s: %v\n", inPath, err)
		return 1
	}
	if img.NX == 0 || img.NY == 0 {
		fmt.Fprintf(os.Stderr, "%s has no image data\n", inPath)
		return 1
	}

	if err := security.ValidateExportPath(outPath); err != nil {
		fmt.Fprintf(os.Stderr, "output path %s rejected: %v\n", outPath, err)
		return 1
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "L"
	p.Y.Label.Text = "M"

	heatMap := plotter.NewHeatMap(ifuGrid{img: img}, palette.Heat(32, 1))
	p.Add(heatMap)

	if err := p.Save(6*vg.Inch, 6*vg.Inch, outPath); err != nil {
		fmt.Fprintf(os.Stderr, "saving %s: %v\n", outPath, err)
		return 1
	}
	return 0
}
