package ifu

import "github.com/eso-vlt/vimos-specred/internal/specred/image"

// PixelData is one (x,y,value) sample recorded in a flood-fill region
// (§3.6: region -> list -> data).
type PixelData struct {
	X, Y  int
	Value float64
}

// PixelList is one contiguous run of pixel samples within a region.
type PixelList struct {
	Count          int
	TotalIntensity float64
	Data           []PixelData
}

// PixelRegion is one connected component discovered by flood-fill,
// mirroring Eclipse's region -> list -> data structure (§3.6).
type PixelRegion struct {
	Lists []PixelList
}

// TotalIntensity sums every list's accumulated intensity.
func (r *PixelRegion) TotalIntensity() float64 {
	var sum float64
	for _, l := range r.Lists {
		sum += l.TotalIntensity
	}
	return sum
}

// Contains reports whether (x,y) was visited by this region.
func (r *PixelRegion) Contains(x, y int) bool {
	for _, l := range r.Lists {
		for _, d := range l.Data {
			if d.X == x && d.Y == y {
				return true
			}
		}
	}
	return false
}

type point struct{ x, y int }

// FloodFill labels the 4-connected components of img's pixels clearing
// threshold (floodfill_from_pixel, §3.6). Uses an explicit work-stack
// rather than recursion, per the redesign note (§9.1) that a recursive
// per-pixel implementation risks host-stack overflow at 80x80 scales;
// connectivity and the per-pixel "visited" semantics are unchanged.
func FloodFill(img *image.Image, threshold float64) []*PixelRegion {
	visited := make([][]bool, img.NY)
	for y := range visited {
		visited[y] = make([]bool, img.NX)
	}
	var regions []*PixelRegion
	for y := 0; y < img.NY; y++ {
		for x := 0; x < img.NX; x++ {
			if visited[y][x] {
				continue
			}
			v, err := img.At(x, y)
			if err != nil || v < threshold {
				visited[y][x] = true
				continue
			}
			regions = append(regions, floodFrom(img, visited, x, y, threshold))
		}
	}
	return regions
}

func floodFrom(img *image.Image, visited [][]bool, x0, y0 int, threshold float64) *PixelRegion {
	stack := []point{{x0, y0}}
	visited[y0][x0] = true
	var data []PixelData
	for len(stack) > 0 {
		n := len(stack) - 1
		cur := stack[n]
		stack = stack[:n]
		v, _ := img.At(cur.x, cur.y)
		data = append(data, PixelData{X: cur.x, Y: cur.y, Value: v})

		neighbours := [4]point{
			{cur.x - 1, cur.y}, {cur.x + 1, cur.y},
			{cur.x, cur.y - 1}, {cur.x, cur.y + 1},
		}
		for _, nb := range neighbours {
			if nb.x < 0 || nb.x >= img.NX || nb.y < 0 || nb.y >= img.NY {
				continue
			}
			if visited[nb.y][nb.x] {
				continue
			}
			nv, err := img.At(nb.x, nb.y)
			if err != nil || nv < threshold {
				visited[nb.y][nb.x] = true
				continue
			}
			visited[nb.y][nb.x] = true
			stack = append(stack, nb)
		}
	}
	var total float64
	for _, d := range data {
		total += d.Value
	}
	return &PixelRegion{Lists: []PixelList{{Count: len(data), TotalIntensity: total, Data: data}}}
}
