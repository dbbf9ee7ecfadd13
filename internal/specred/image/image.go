// Package image implements the L1 image carrier: a 2-D float pixel
// buffer with a descriptor header, arithmetic, combination modes,
// filters, statistics, and integer-pixel shifts (§4.2).
package image

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/eso-vlt/vimos-specred/internal/specred"
	"github.com/eso-vlt/vimos-specred/internal/specred/kind"
)

// Image is a 2-D float64 pixel buffer in row-major order, x fastest.
type Image struct {
	NX, NY      int
	Data        []float64
	Descriptors *specred.DescriptorList
}

// New allocates a zeroed nx x ny image.
func New(nx, ny int) *Image {
	return &Image{NX: nx, NY: ny, Data: make([]float64, nx*ny), Descriptors: specred.NewDescriptorList()}
}

func (img *Image) idx(x, y int) int { return y*img.NX + x }

// At returns the pixel value at (x,y).
func (img *Image) At(x, y int) (float64, error) {
	if x < 0 || x >= img.NX || y < 0 || y >= img.NY {
		return 0, kind.New(kind.OutOfRange, "pixel (%d,%d) out of range (%d,%d)", x, y, img.NX, img.NY)
	}
	return img.Data[img.idx(x, y)], nil
}

// Set writes the pixel value at (x,y).
func (img *Image) Set(x, y int, v float64) error {
	if x < 0 || x >= img.NX || y < 0 || y >= img.NY {
		return kind.New(kind.OutOfRange, "pixel (%d,%d) out of range (%d,%d)", x, y, img.NX, img.NY)
	}
	img.Data[img.idx(x, y)] = v
	return nil
}

// Op is the closed set of element-wise arithmetic operators.
type Op int

const (
	Add Op = iota
	Sub
	Mul
	Div
)

func sameShape(a, b *Image) error {
	if a.NX != b.NX || a.NY != b.NY {
		return kind.New(kind.Incompatible, "image shapes differ: (%d,%d) vs (%d,%d)", a.NX, a.NY, b.NX, b.NY)
	}
	return nil
}

func apply(op Op, x, y float64) (float64, error) {
	switch op {
	case Add:
		return x + y, nil
	case Sub:
		return x - y, nil
	case Mul:
		return x * y, nil
	case Div:
		if y == 0 {
			return 0, kind.New(kind.DivisionByZero, "division by zero pixel")
		}
		return x / y, nil
	}
	return 0, kind.New(kind.IllegalInput, "unknown operator %d", op)
}

// Arith returns a new image that is the element-wise result of op(a,b).
func Arith(a, b *Image, op Op) (*Image, error) {
	if err := sameShape(a, b); err != nil {
		return nil, err
	}
	out := New(a.NX, a.NY)
	for i := range a.Data {
		v, err := apply(op, a.Data[i], b.Data[i])
		if err != nil {
			return nil, err
		}
		out.Data[i] = v
	}
	return out, nil
}

// ArithLocal computes op(a,b) element-wise in place into a.
func ArithLocal(a, b *Image, op Op) error {
	if err := sameShape(a, b); err != nil {
		return err
	}
	for i := range a.Data {
		v, err := apply(op, a.Data[i], b.Data[i])
		if err != nil {
			return err
		}
		a.Data[i] = v
	}
	return nil
}

// ConstArith returns a new image applying op(pixel, c) element-wise.
func ConstArith(a *Image, c float64, op Op) (*Image, error) {
	out := New(a.NX, a.NY)
	for i, v := range a.Data {
		r, err := apply(op, v, c)
		if err != nil {
			return nil, err
		}
		out.Data[i] = r
	}
	return out, nil
}

// ConstArithLocal applies op(pixel, c) element-wise in place.
func ConstArithLocal(a *Image, c float64, op Op) error {
	for i, v := range a.Data {
		r, err := apply(op, v, c)
		if err != nil {
			return err
		}
		a.Data[i] = r
	}
	return nil
}

// --- statistics ---

// Mean returns the arithmetic mean of all pixels.
func (img *Image) Mean() float64 {
	return stat.Mean(img.Data, nil)
}

// Median returns the median pixel value.
func (img *Image) Median() float64 {
	return median(append([]float64(nil), img.Data...))
}

// StdDev returns the sample standard deviation of all pixels.
func (img *Image) StdDev() float64 {
	return stat.StdDev(img.Data, nil)
}

// MedianSigma returns a robust sigma estimate around the median, used by
// the k-sigma combination mode: 1.4826 * median(|x - median(x)|) (the
// standard MAD-to-sigma scale factor for normally distributed data).
func (img *Image) MedianSigma() float64 {
	m := img.Median()
	dev := make([]float64, len(img.Data))
	for i, v := range img.Data {
		dev[i] = math.Abs(v - m)
	}
	return 1.4826 * median(dev)
}

// AverageDeviation returns the mean absolute deviation from v.
func (img *Image) AverageDeviation(v float64) float64 {
	if len(img.Data) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range img.Data {
		sum += math.Abs(p - v)
	}
	return sum / float64(len(img.Data))
}

// Min returns the minimum pixel value.
func (img *Image) Min() float64 {
	m := img.Data[0]
	for _, v := range img.Data[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// Max returns the maximum pixel value.
func (img *Image) Max() float64 {
	m := img.Data[0]
	for _, v := range img.Data[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// Mode returns the histogram-peak pixel value using nbins equal-width
// bins spanning [Min,Max].
func (img *Image) Mode(nbins int) float64 {
	if nbins < 1 {
		nbins = 1
	}
	lo, hi := img.Min(), img.Max()
	if hi == lo {
		return lo
	}
	width := (hi - lo) / float64(nbins)
	counts := make([]int, nbins)
	for _, v := range img.Data {
		b := int((v - lo) / width)
		if b >= nbins {
			b = nbins - 1
		}
		if b < 0 {
			b = 0
		}
		counts[b]++
	}
	best := 0
	for i, c := range counts {
		if c > counts[best] {
			best = i
		}
	}
	return lo + (float64(best)+0.5)*width
}

func median(xs []float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	sort.Float64s(xs)
	if n%2 == 1 {
		return xs[n/2]
	}
	return (xs[n/2-1] + xs[n/2]) / 2
}

// Clone returns an independent copy of the image, including its
// descriptor header.
func (img *Image) Clone() *Image {
	out := New(img.NX, img.NY)
	copy(out.Data, img.Data)
	for i := 0; i < img.Descriptors.Len(); i++ {
		d, _ := img.Descriptors.At(i)
		out.Descriptors.Put(*d)
	}
	return out
}

// Shift returns a new image translated by (dx,dy) in whole pixels,
// filling uncovered pixels with fill.
func (img *Image) Shift(dx, dy int, fill float64) *Image {
	out := New(img.NX, img.NY)
	for y := 0; y < img.NY; y++ {
		for x := 0; x < img.NX; x++ {
			sx, sy := x-dx, y-dy
			if sx < 0 || sx >= img.NX || sy < 0 || sy >= img.NY {
				out.Set(x, y, fill) //nolint:errcheck
				continue
			}
			v, _ := img.At(sx, sy)
			out.Set(x, y, v) //nolint:errcheck
		}
	}
	return out
}
