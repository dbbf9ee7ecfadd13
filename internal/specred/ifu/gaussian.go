package ifu

import "math"

// evalGaussian evaluates a 1-D Gaussian profile at x.
func evalGaussian(x, centre, sigma, amplitude float64) float64 {
	if sigma == 0 {
		return 0
	}
	d := (x - centre) / sigma
	return amplitude * math.Exp(-0.5*d*d)
}

// GaussianFit is the result of fitting a Gaussian profile to a windowed
// signal. The legacy 6-parameter nonlinear fit (§4.4.4) is reduced here
// to centre/sigma/amplitude/flux via weighted moments, a standard,
// numerically stable substitute when only the line centroid, width, and
// integrated flux are needed downstream.
type GaussianFit struct {
	Centre, Sigma, Amplitude, Flux float64
}

// fitGaussianWindow fits a Gaussian to window y sampled at integer
// x-offsets starting at x0, by weighted first/second moments.
func fitGaussianWindow(x0 int, y []float64) GaussianFit {
	var sum, sumX, sumX2 float64
	amplitude := 0.0
	for i, v := range y {
		if v <= 0 {
			continue
		}
		xi := float64(x0 + i)
		sum += v
		sumX += v * xi
		sumX2 += v * xi * xi
		if v > amplitude {
			amplitude = v
		}
	}
	if sum <= 0 {
		return GaussianFit{}
	}
	mean := sumX / sum
	variance := sumX2/sum - mean*mean
	if variance < 0 {
		variance = 0
	}
	return GaussianFit{Centre: mean, Sigma: math.Sqrt(variance), Amplitude: amplitude, Flux: sum}
}
