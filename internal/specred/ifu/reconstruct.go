package ifu

import (
	"github.com/eso-vlt/vimos-specred/internal/specred/image"
	"github.com/eso-vlt/vimos-specred/internal/specred/kind"
)

// Object pairs a (L,M) micro-lens position with its extracted spectrum,
// the unit both reconstruction operations consume (§4.4.8).
type Object struct {
	L, M     int
	Spectrum []float64
}

// Image2D integrates each object's spectrum across [wStart,wEnd] and
// places the scalar at pixel (L-1,M-1) of an 80x80 image, zero elsewhere
// so missing quadrants leave zeros (ifu_2d_image, §4.4.8).
func Image2D(objects []Object, wStart, wEnd int) (*image.Image, error) {
	img := image.New(reconstructionSize, reconstructionSize)
	for _, o := range objects {
		if err := checkLM(o.L, o.M); err != nil {
			return nil, err
		}
		lo, hi := wStart, wEnd
		if lo < 0 {
			lo = 0
		}
		if hi >= len(o.Spectrum) {
			hi = len(o.Spectrum) - 1
		}
		var sum float64
		for px := lo; px <= hi; px++ {
			sum += o.Spectrum[px]
		}
		if err := img.Set(o.L-1, o.M-1, sum); err != nil {
			return nil, err
		}
	}
	return img, nil
}

// Cube3D is an 80x80xspecLen cube: the depth axis holds each object's
// full spectrum at its (L,M) pixel (ifu_3d_cube, §4.4.8).
type Cube3D struct {
	SpecLen int
	Data    [][][]float64 // [y][x][wavelength]
}

// NewCube3D allocates a zeroed cube of the given spectral length.
func NewCube3D(specLen int) *Cube3D {
	c := &Cube3D{SpecLen: specLen}
	c.Data = make([][][]float64, reconstructionSize)
	for y := range c.Data {
		c.Data[y] = make([][]float64, reconstructionSize)
		for x := range c.Data[y] {
			c.Data[y][x] = make([]float64, specLen)
		}
	}
	return c
}

// Cube3DFrom builds a cube from objects, copying each object's spectrum
// into the depth axis at (L-1,M-1) (ifu_3d_cube, §4.4.8).
func Cube3DFrom(objects []Object, specLen int) (*Cube3D, error) {
	c := NewCube3D(specLen)
	for _, o := range objects {
		if err := checkLM(o.L, o.M); err != nil {
			return nil, err
		}
		n := len(o.Spectrum)
		if n > specLen {
			n = specLen
		}
		copy(c.Data[o.M-1][o.L-1], o.Spectrum[:n])
	}
	return c, nil
}

func checkLM(l, m int) error {
	if l < 1 || l > reconstructionSize || m < 1 || m > reconstructionSize {
		return kind.New(kind.OutOfRange, "(L=%d,M=%d) outside 1..%d", l, m, reconstructionSize)
	}
	return nil
}
