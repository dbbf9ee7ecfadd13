package image

import (
	"github.com/eso-vlt/vimos-specred/internal/specred"
	"github.com/eso-vlt/vimos-specred/internal/specred/fitsio"
	"github.com/eso-vlt/vimos-specred/internal/specred/kind"
)

// ReadFITS builds an Image from a FITS file's primary HDU: its pixel
// data and every scalar header card as a descriptor, letting recipe
// CLIs round-trip a frame through fitsio without hand-rolling the
// conversion at each call site.
func ReadFITS(f *fitsio.File) (*Image, error) {
	if f == nil || f.Primary == nil || len(f.Primary.Naxis) < 2 {
		return nil, kind.New(kind.IllegalInput, "primary HDU has no 2-D image data")
	}
	nx, ny := f.Primary.Naxis[0], f.Primary.Naxis[1]
	img := New(nx, ny)
	copy(img.Data, f.Primary.Data)
	for _, c := range f.Primary.Header {
		if d, ok := cardToDescriptor(c); ok {
			img.Descriptors.Put(d)
		}
	}
	return img, nil
}

// WriteFITS installs img's pixel data and descriptors into f's primary
// HDU, replacing whatever was there.
func WriteFITS(f *fitsio.File, img *Image) {
	cards := make([]fitsio.Card, 0, img.Descriptors.Len())
	for i := 0; i < img.Descriptors.Len(); i++ {
		d, err := img.Descriptors.At(i)
		if err != nil {
			continue
		}
		if c, ok := descriptorToCard(d); ok {
			cards = append(cards, c)
		}
	}
	f.Primary = &fitsio.Image{
		Header: cards,
		Naxis:  []int{img.NX, img.NY},
		Data:   append([]float64(nil), img.Data...),
	}
}

// cardToDescriptor converts a scalar header card into a descriptor.
// Array-valued cards are outside this bridge's scope; images carry
// scalar instrument/WCS keywords, not the array-encoded polynomial
// coefficients the specialised calibration tables use.
func cardToDescriptor(c fitsio.Card) (specred.Descriptor, bool) {
	switch v := c.Value.(type) {
	case bool:
		return specred.NewBool(c.Key, v, c.Comment), true
	case int:
		return specred.NewInt(c.Key, int32(v), c.Comment), true
	case int32:
		return specred.NewInt(c.Key, v, c.Comment), true
	case int64:
		return specred.NewInt(c.Key, int32(v), c.Comment), true
	case float64:
		return specred.NewDouble(c.Key, v, c.Comment), true
	case float32:
		return specred.NewFloat(c.Key, v, c.Comment), true
	case string:
		return specred.NewString(c.Key, v, c.Comment), true
	default:
		return specred.Descriptor{}, false
	}
}

func descriptorToCard(d *specred.Descriptor) (fitsio.Card, bool) {
	switch d.Type {
	case specred.DescBool:
		v, _ := d.Bool()
		return fitsio.Card{Key: d.Name, Value: v, Comment: d.Comment}, true
	case specred.DescInt:
		v, _ := d.Int()
		return fitsio.Card{Key: d.Name, Value: int64(v), Comment: d.Comment}, true
	case specred.DescFloat:
		v, _ := d.Float()
		return fitsio.Card{Key: d.Name, Value: float64(v), Comment: d.Comment}, true
	case specred.DescDouble:
		v, _ := d.Double()
		return fitsio.Card{Key: d.Name, Value: v, Comment: d.Comment}, true
	case specred.DescString:
		v, _ := d.String()
		return fitsio.Card{Key: d.Name, Value: v, Comment: d.Comment}, true
	default:
		return fitsio.Card{}, false
	}
}
