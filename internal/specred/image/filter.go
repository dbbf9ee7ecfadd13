package image

// MedianFilter and AverageFilter apply a box filter of size (w,h); if
// excludeCenter is set, the central pixel of the box is left out of the
// statistic. At the edges the kernel shrinks to (w/2+1)x(h/2+1) rather
// than wrapping or padding (§4.2).

func boxBounds(img *Image, x, y, w, h int) (x0, x1, y0, y1 int) {
	hw, hh := w/2, h/2
	x0, x1 = x-hw, x+hw
	y0, y1 = y-hh, y+hh
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 >= img.NX {
		x1 = img.NX - 1
	}
	if y1 >= img.NY {
		y1 = img.NY - 1
	}
	return
}

func collectBox(img *Image, x, y, w, h int, excludeCenter bool) []float64 {
	x0, x1, y0, y1 := boxBounds(img, x, y, w, h)
	vals := make([]float64, 0, (x1-x0+1)*(y1-y0+1))
	for yy := y0; yy <= y1; yy++ {
		for xx := x0; xx <= x1; xx++ {
			if excludeCenter && xx == x && yy == y {
				continue
			}
			vals = append(vals, img.Data[img.idx(xx, yy)])
		}
	}
	return vals
}

// MedianFilter returns a new image where each pixel is the median of its
// (w,h) box neighbourhood.
func MedianFilter(img *Image, w, h int, excludeCenter bool) *Image {
	out := New(img.NX, img.NY)
	for y := 0; y < img.NY; y++ {
		for x := 0; x < img.NX; x++ {
			vals := collectBox(img, x, y, w, h, excludeCenter)
			out.Data[out.idx(x, y)] = median(vals)
		}
	}
	return out
}

// AverageFilter returns a new image where each pixel is the mean of its
// (w,h) box neighbourhood.
func AverageFilter(img *Image, w, h int, excludeCenter bool) *Image {
	out := New(img.NX, img.NY)
	for y := 0; y < img.NY; y++ {
		for x := 0; x < img.NX; x++ {
			vals := collectBox(img, x, y, w, h, excludeCenter)
			sum := 0.0
			for _, v := range vals {
				sum += v
			}
			out.Data[out.idx(x, y)] = sum / float64(len(vals))
		}
	}
	return out
}
