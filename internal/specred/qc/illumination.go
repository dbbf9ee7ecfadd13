package qc

import (
	"math"

	"github.com/eso-vlt/vimos-specred/internal/specred/image"
	"github.com/eso-vlt/vimos-specred/internal/specred/kind"
)

// IlluminationSelection is the outcome of selecting the most
// consistently-illuminated subset among a set of frames.
type IlluminationSelection struct {
	// Reference is the index, into the original input slice, of the
	// frame with the greatest count of consistent partners.
	Reference int
	// Order lists original indices in the new order: the first Accepted
	// entries are the frames consistent with Reference, the rest follow.
	Order []int
	// Accepted is how many leading entries of Order are consistent.
	Accepted int
}

// SelectConsistentIllumination builds the symmetric matrix of
// mean(|a-b|) pixel differences across all N input images and the
// threshold matrix kappa*sqrt(sigma_a^2+sigma_b^2), picks the row with
// the greatest count of entries below threshold, and returns the
// reordering that brings that row's consistent frames to the front.
func SelectConsistentIllumination(images []*image.Image, kappa float64) (*IlluminationSelection, error) {
	n := len(images)
	if n < 2 {
		return nil, kind.New(kind.IllegalInput, "consistent-illumination selection requires at least 2 frames, got %d", n)
	}
	sigma := make([]float64, n)
	for i, img := range images {
		sigma[i] = img.StdDev()
	}

	diff := make([][]float64, n)
	consistent := make([][]bool, n)
	counts := make([]int, n)
	for i := range images {
		diff[i] = make([]float64, n)
		consistent[i] = make([]bool, n)
		for j := range images {
			if i == j {
				continue
			}
			diff[i][j], _ = meanAbsDiff(images[i], images[j])
			threshold := kappa * math.Sqrt(sigma[i]*sigma[i]+sigma[j]*sigma[j])
			if diff[i][j] < threshold {
				consistent[i][j] = true
				counts[i]++
			}
		}
	}

	ref := 0
	for i := 1; i < n; i++ {
		if counts[i] > counts[ref] {
			ref = i
		}
	}

	order := make([]int, 0, n)
	order = append(order, ref)
	for j := 0; j < n; j++ {
		if j != ref && consistent[ref][j] {
			order = append(order, j)
		}
	}
	accepted := len(order)
	for j := 0; j < n; j++ {
		if j != ref && !consistent[ref][j] {
			order = append(order, j)
		}
	}

	return &IlluminationSelection{Reference: ref, Order: order, Accepted: accepted}, nil
}

// meanAbsDiff averages |a-b| over every pixel of two equal-shaped frames.
func meanAbsDiff(a, b *image.Image) (float64, error) {
	if a.NX != b.NX || a.NY != b.NY {
		return 0, kind.New(kind.Incompatible, "frames have mismatched shape: %dx%d vs %dx%d", a.NX, a.NY, b.NX, b.NY)
	}
	var sum float64
	for i := range a.Data {
		sum += absf(a.Data[i] - b.Data[i])
	}
	return sum / float64(len(a.Data)), nil
}

// Reorder applies order (a permutation of indices into vals) and
// returns the reordered slice, letting a caller keep any parallel
// float/double array in step with a reordered image list.
func Reorder[T any](vals []T, order []int) []T {
	out := make([]T, len(order))
	for i, idx := range order {
		out[i] = vals[idx]
	}
	return out
}
