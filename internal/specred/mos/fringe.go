package mos

import (
	"sort"

	"github.com/eso-vlt/vimos-specred/internal/specred/caltab"
	"github.com/eso-vlt/vimos-specred/internal/specred/image"
	"github.com/eso-vlt/vimos-specred/internal/specred/kind"
)

// FringeParams configures sp_fring_corr (§4.5).
type FringeParams struct {
	Interpolate bool // linearly interpolate across masked object windows before combining
	Pixels      int  // padding added to each side of an object's X window, default 10
}

// fringeWindow is one slit-object's masked footprint on the 2-D CCD frame: its
// Y range from the owning slit and its padded X range from the object's
// position/width.
type fringeWindow struct {
	yStart, yEnd int
	xStart, xEnd int
}

// FringeCorrect implements sp_fring_corr: for each of n>=2 long-slit 2-D
// science frames, it masks out every object's on-sky footprint (§4.5
// step 1), median-combines the masked duplicates into a residual
// fringe-pattern frame (step 2), optionally post-interpolates any pixel
// left unmasked by no frame (step 3), then subtracts the residual from
// every original frame in place (step 4).
//
// Unlike the legacy implementation, which flagged masked pixels by
// overwriting them with the sentinel value -32000 (conflating "no data"
// with a real pixel value), masked regions here are tracked in a
// separate boolean mask parallel to each duplicate frame (§9.2).
func FringeCorrect(images []*image.Image, windows []*caltab.WindowTable, p FringeParams) error {
	n := len(images)
	if n < 2 {
		return kind.New(kind.IllegalInput, "fringe correction requires at least 2 frames, got %d", n)
	}
	if len(windows) != n {
		return kind.New(kind.Incompatible, "images and window tables count mismatch: %d vs %d", n, len(windows))
	}
	nx, ny := images[0].NX, images[0].NY
	for _, img := range images[1:] {
		if img.NX != nx || img.NY != ny {
			return kind.New(kind.Incompatible, "fringe correction requires frames of equal shape")
		}
	}

	pixels := p.Pixels
	if pixels <= 0 {
		pixels = 10
	}

	modified := make([]*image.Image, n)
	masks := make([][]bool, n)
	for i, img := range images {
		dup := img.Clone()
		mask := make([]bool, nx*ny)
		for _, w := range fringeWindows(windows[i], pixels) {
			for y := w.yStart; y < w.yEnd; y++ {
				if y < 0 || y >= ny {
					continue
				}
				if p.Interpolate {
					interpolateRow(dup, y, w.xStart, w.xEnd)
				} else {
					flagRow(mask, nx, y, w.xStart, w.xEnd)
				}
			}
		}
		modified[i] = dup
		masks[i] = mask
	}

	residual, flagged := medianCombine(modified, masks)
	if !p.Interpolate {
		postInterpolateRuns(residual, flagged)
	}

	for _, img := range images {
		if err := image.ArithLocal(img, residual, image.Sub); err != nil {
			return err
		}
	}
	return nil
}

// fringeWindows enumerates every object's padded X window and its
// owning slit's Y range.
func fringeWindows(wt *caltab.WindowTable, pixels int) []fringeWindow {
	var out []fringeWindow
	for i := 0; i < wt.NSlits(); i++ {
		s, err := wt.Slit(i)
		if err != nil {
			continue
		}
		for _, o := range s.Objects {
			half := o.Width / 2
			out = append(out, fringeWindow{
				yStart: s.SpecStart,
				yEnd:   s.SpecEnd,
				xStart: int(o.Position-half) - pixels,
				xEnd:   int(o.Position+half) + pixels,
			})
		}
	}
	return out
}

func flagRow(mask []bool, nx, y, xStart, xEnd int) {
	for x := xStart; x <= xEnd; x++ {
		if x < 0 || x >= nx {
			continue
		}
		mask[y*nx+x] = true
	}
}

// interpolateRow linearly interpolates row y across [xStart,xEnd] using
// the 3-pixel average just outside each edge as the endpoint value.
func interpolateRow(img *image.Image, y, xStart, xEnd int) {
	if xEnd < xStart {
		return
	}
	leftAvg := edgeAverage(img, y, xStart-3, xStart-1)
	rightAvg := edgeAverage(img, y, xEnd+1, xEnd+3)
	span := xEnd - xStart
	if span <= 0 {
		span = 1
	}
	for x := xStart; x <= xEnd; x++ {
		if x < 0 || x >= img.NX {
			continue
		}
		t := float64(x-xStart) / float64(span)
		img.Set(x, y, leftAvg+t*(rightAvg-leftAvg)) //nolint:errcheck
	}
}

// edgeAverage averages the pixels of row y in [lo,hi], clamped to the
// image's X bounds.
func edgeAverage(img *image.Image, y, lo, hi int) float64 {
	var sum float64
	var count int
	for x := lo; x <= hi; x++ {
		cx := x
		if cx < 0 {
			cx = 0
		}
		if cx >= img.NX {
			cx = img.NX - 1
		}
		v, err := img.At(cx, y)
		if err != nil {
			continue
		}
		sum += v
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// medianCombine combines the masked duplicates pixel-by-pixel, excluding
// any frame flagged at that pixel. A pixel flagged in every frame is
// reported in the returned mask for post-interpolation.
func medianCombine(modified []*image.Image, masks [][]bool) (*image.Image, []bool) {
	nx, ny := modified[0].NX, modified[0].NY
	out := image.New(nx, ny)
	flagged := make([]bool, nx*ny)
	vals := make([]float64, 0, len(modified))
	for idx := 0; idx < nx*ny; idx++ {
		vals = vals[:0]
		for f, img := range modified {
			if masks[f][idx] {
				continue
			}
			vals = append(vals, img.Data[idx])
		}
		if len(vals) == 0 {
			flagged[idx] = true
			continue
		}
		out.Data[idx] = medianOf(vals)
	}
	return out, flagged
}

// postInterpolateRuns linearly interpolates every contiguous run of
// flagged pixels remaining in the combined residual, row by row.
func postInterpolateRuns(img *image.Image, flagged []bool) {
	nx, ny := img.NX, img.NY
	for y := 0; y < ny; y++ {
		x := 0
		for x < nx {
			if !flagged[y*nx+x] {
				x++
				continue
			}
			start := x
			for x < nx && flagged[y*nx+x] {
				x++
			}
			interpolateRow(img, y, start, x-1)
		}
	}
}

func medianOf(xs []float64) float64 {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
