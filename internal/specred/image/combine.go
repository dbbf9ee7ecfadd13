package image

import (
	"sort"

	"github.com/eso-vlt/vimos-specred/internal/specred/kind"
)

// CombineMode is the closed set of frame-combination methods of §4.2.
type CombineMode int

const (
	Sum CombineMode = iota
	Average
	Median
	MinMaxReject
	KSigma
	Auto
)

// KSigmaParams configures the iterative k-sigma rejection combiner.
type KSigmaParams struct {
	KLow, KHigh float64
	MaxIter     int
}

// MinMaxParams configures the per-pixel low/high rejection combiner.
type MinMaxParams struct {
	MinReject, MaxReject int
}

func checkFrames(frames []*Image, minCount int) error {
	if len(frames) < minCount {
		return kind.New(kind.IllegalInput, "combine requires at least %d frames, got %d", minCount, len(frames))
	}
	for _, f := range frames[1:] {
		if err := sameShape(frames[0], f); err != nil {
			return err
		}
	}
	return nil
}

// Combine runs the named mode over frames. MIN-MAX-REJECT and K-SIGMA
// require their respective params (pass zero value for others).
func Combine(mode CombineMode, frames []*Image, mm MinMaxParams, ks KSigmaParams) (*Image, error) {
	switch mode {
	case Sum:
		return combineSum(frames)
	case Average:
		return combineAverage(frames)
	case Median:
		return combineMedian(frames)
	case MinMaxReject:
		return combineMinMaxReject(frames, mm)
	case KSigma:
		return combineKSigma(frames, ks)
	case Auto:
		return combineAuto(frames, mm, ks)
	}
	return nil, kind.New(kind.IllegalInput, "unknown combine mode %d", mode)
}

func combineSum(frames []*Image) (*Image, error) {
	if err := checkFrames(frames, 2); err != nil {
		return nil, err
	}
	out := New(frames[0].NX, frames[0].NY)
	for _, f := range frames {
		for i, v := range f.Data {
			out.Data[i] += v
		}
	}
	return out, nil
}

func combineAverage(frames []*Image) (*Image, error) {
	if err := checkFrames(frames, 2); err != nil {
		if len(frames) == 1 {
			out := New(frames[0].NX, frames[0].NY)
			copy(out.Data, frames[0].Data)
			return out, nil
		}
		return nil, err
	}
	s, err := combineSum(frames)
	if err != nil {
		return nil, err
	}
	n := float64(len(frames))
	for i := range s.Data {
		s.Data[i] /= n
	}
	return s, nil
}

func combineMedian(frames []*Image) (*Image, error) {
	if err := checkFrames(frames, 3); err != nil {
		return nil, err
	}
	out := New(frames[0].NX, frames[0].NY)
	npix := len(frames[0].Data)
	col := make([]float64, len(frames))
	for i := 0; i < npix; i++ {
		for j, f := range frames {
			col[j] = f.Data[i]
		}
		out.Data[i] = median(append([]float64(nil), col...))
	}
	return out, nil
}

func combineMinMaxReject(frames []*Image, p MinMaxParams) (*Image, error) {
	if err := checkFrames(frames, 2); err != nil {
		return nil, err
	}
	n := len(frames)
	if p.MinReject+p.MaxReject >= n {
		return nil, kind.New(kind.IllegalInput, "minReject+maxReject (%d) must be < frame count (%d)", p.MinReject+p.MaxReject, n)
	}
	out := New(frames[0].NX, frames[0].NY)
	col := make([]float64, n)
	for i := range out.Data {
		for j, f := range frames {
			col[j] = f.Data[i]
		}
		sorted := append([]float64(nil), col...)
		sort.Float64s(sorted)
		kept := sorted[p.MinReject : n-p.MaxReject]
		sum := 0.0
		for _, v := range kept {
			sum += v
		}
		out.Data[i] = sum / float64(len(kept))
	}
	return out, nil
}

func combineKSigma(frames []*Image, p KSigmaParams) (*Image, error) {
	if err := checkFrames(frames, 2); err != nil {
		return nil, err
	}
	if p.MaxIter <= 0 {
		p.MaxIter = 5
	}
	n := len(frames)
	out := New(frames[0].NX, frames[0].NY)
	for i := range out.Data {
		vals := make([]float64, n)
		for j, f := range frames {
			vals[j] = f.Data[i]
		}
		out.Data[i] = ksigmaPixel(vals, p)
	}
	return out, nil
}

func ksigmaPixel(vals []float64, p KSigmaParams) float64 {
	cur := append([]float64(nil), vals...)
	for iter := 0; iter < p.MaxIter; iter++ {
		if len(cur) < 2 {
			break
		}
		m := median(append([]float64(nil), cur...))
		sigma := medianSigma(cur, m)
		if sigma == 0 {
			break
		}
		kept := cur[:0:0]
		for _, v := range cur {
			if v >= m-p.KLow*sigma && v <= m+p.KHigh*sigma {
				kept = append(kept, v)
			}
		}
		if len(kept) == len(cur) {
			cur = kept
			break
		}
		if len(kept) == 0 {
			break
		}
		cur = kept
	}
	sum := 0.0
	for _, v := range cur {
		sum += v
	}
	return sum / float64(len(cur))
}

func medianSigma(xs []float64, m float64) float64 {
	dev := make([]float64, len(xs))
	for i, v := range xs {
		dev[i] = absf(v - m)
	}
	return 1.4826 * median(dev)
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// combineAuto selects the richest applicable mode given the frame count,
// documenting each degrade transition explicitly (§9.2 open question):
//
//   - n == 1: degrades to a copy of the single frame (Average's n==1 path).
//   - n == 2: MEDIAN requires three frames and K-SIGMA is reserved for
//     n>=5 (below); degrades to AVERAGE (MIN-MAX-REJECT with
//     minReject=maxReject=0).
//   - n in [3,4]: MEDIAN is applicable and is the richest available mode
//     (K-SIGMA is preferred at n>=5 where rejection has enough support).
//   - n >= 5: K-SIGMA with the caller-supplied thresholds.
func combineAuto(frames []*Image, mm MinMaxParams, ks KSigmaParams) (*Image, error) {
	switch n := len(frames); {
	case n <= 0:
		return nil, kind.New(kind.NullInput, "combine requires at least one frame")
	case n == 1:
		return combineAverage(frames)
	case n == 2:
		return combineAverage(frames)
	case n >= 3 && n < 5:
		return combineMedian(frames)
	default:
		return combineKSigma(frames, ks)
	}
}
