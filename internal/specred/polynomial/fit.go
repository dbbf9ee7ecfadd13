package polynomial

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/eso-vlt/vimos-specred/internal/specred/kind"
)

// FitResult carries the least-squares residual alongside the fitted
// polynomial.
type FitResult struct {
	Poly             *Polynomial
	MeanSquareResidual float64
}

func distinctCount(x []float64) int {
	seen := make(map[float64]bool, len(x))
	for _, v := range x {
		seen[v] = true
	}
	return len(seen)
}

// Fit1D performs a univariate least-squares polynomial fit of degree
// range [mindeg,maxdeg] to (x,y) samples (§4.3):
//  1. requires at least (maxdeg-mindeg+1) distinct x values, else
//     DataNotFound.
//  2. if mindeg == 0, x is translated by its mean for conditioning.
//  3. the Hankel normal-equation matrix H = V^T V is built directly by
//     accumulating power sums (never forming V), and the right-hand side
//     V^T y; for mindeg > 0 the powers are scaled by x^mindeg.
//  4. solved via Cholesky (SPD) solve; SingularMatrix on failure.
//  5. coefficients are written into the returned polynomial, shifted
//     back by -mean if mindeg == 0.
func Fit1D(x, y []float64, mindeg, maxdeg int) (*FitResult, error) {
	if len(x) != len(y) {
		return nil, kind.New(kind.Incompatible, "x has %d samples, y has %d", len(x), len(y))
	}
	if mindeg < 0 || maxdeg < mindeg {
		return nil, kind.New(kind.IllegalInput, "invalid degree range [%d,%d]", mindeg, maxdeg)
	}
	nterms := maxdeg - mindeg + 1
	if distinctCount(x) < nterms {
		return nil, kind.New(kind.DataNotFound, "need >= %d distinct x samples, got %d", nterms, distinctCount(x))
	}

	mean := 0.0
	xs := x
	if mindeg == 0 {
		mean = stat.Mean(x, nil)
		xs = make([]float64, len(x))
		for i, v := range x {
			xs[i] = v - mean
		}
	}

	// Power sums s[k] = sum(xs^k) for k = 0..2*maxdeg, used to fill the
	// Hankel matrix H[i][j] = s[i+j+2*mindeg].
	maxPow := 2 * maxdeg
	powSums := make([]float64, maxPow+1)
	for _, v := range xs {
		p := 1.0
		for k := 0; k <= maxPow; k++ {
			powSums[k] += p
			p *= v
		}
	}

	H := mat.NewSymDense(nterms, nil)
	for i := 0; i < nterms; i++ {
		for j := i; j < nterms; j++ {
			H.SetSym(i, j, powSums[i+j+2*mindeg])
		}
	}

	rhs := make([]float64, nterms)
	for i := 0; i < nterms; i++ {
		sum := 0.0
		for k, v := range xs {
			p := 1.0
			for e := 0; e < i+mindeg; e++ {
				p *= v
			}
			sum += p * y[k]
		}
		rhs[i] = sum
	}
	b := mat.NewVecDense(nterms, rhs)

	var chol mat.Cholesky
	if ok := chol.Factorize(H); !ok {
		return nil, kind.New(kind.SingularMatrix, "Fit1D: normal equations are not positive-definite")
	}
	var coeffs mat.VecDense
	if err := chol.SolveVecTo(&coeffs, b); err != nil {
		return nil, kind.New(kind.SingularMatrix, "Fit1D: solve failed: %v", err)
	}

	out, _ := New(1)
	for i := 0; i < nterms; i++ {
		out.SetCoeff([]int{i + mindeg}, coeffs.AtVec(i)) //nolint:errcheck
	}
	if mindeg == 0 && mean != 0 {
		shifted, err := out.Shift(0, -mean)
		if err != nil {
			return nil, err
		}
		out = shifted
	}

	res := meanSquareResidual1D(out, x, y)
	return &FitResult{Poly: out, MeanSquareResidual: res}, nil
}

func meanSquareResidual1D(p *Polynomial, x, y []float64) float64 {
	sum := 0.0
	for i := range x {
		v, _ := p.Eval1D(x[i])
		d := v - y[i]
		sum += d * d
	}
	return sum / float64(len(x))
}

// Fit2D performs a bivariate least-squares polynomial fit. Terms run over
// degy=0..maxdegY and, for each degy, degx=0..maxdegX (or
// degx=0..maxdegX-degy when triangular), matching §4.3's Vandermonde
// layout. Every term starts at degree 0 in both variables; there is no
// minimum-degree parameter.
func Fit2D(xy [][2]float64, z []float64, maxdegX, maxdegY int, triangular bool) (*FitResult, error) {
	if len(xy) != len(z) {
		return nil, kind.New(kind.Incompatible, "xy has %d samples, z has %d", len(xy), len(z))
	}
	type exp struct{ dx, dy int }
	var terms []exp
	for dy := 0; dy <= maxdegY; dy++ {
		limX := maxdegX
		if triangular {
			limX = maxdegX - dy
			if limX < 0 {
				continue
			}
		}
		for dx := 0; dx <= limX; dx++ {
			terms = append(terms, exp{dx, dy})
		}
	}
	nterms := len(terms)
	if len(xy) < nterms {
		return nil, kind.New(kind.DataNotFound, "need >= %d samples for %d terms, got %d", nterms, nterms, len(xy))
	}

	meanX, meanY := 0.0, 0.0
	for _, p := range xy {
		meanX += p[0]
		meanY += p[1]
	}
	meanX /= float64(len(xy))
	meanY /= float64(len(xy))

	V := mat.NewDense(len(xy), nterms, nil)
	for r, p := range xy {
		xs, ys := p[0]-meanX, p[1]-meanY
		for c, t := range terms {
			V.Set(r, c, ipow(xs, t.dx)*ipow(ys, t.dy))
		}
	}
	var VtV mat.Dense
	VtV.Mul(V.T(), V)
	zVec := mat.NewVecDense(len(z), z)
	var Vtz mat.VecDense
	Vtz.MulVec(V.T(), zVec)

	sym := mat.NewSymDense(nterms, nil)
	for i := 0; i < nterms; i++ {
		for j := i; j < nterms; j++ {
			sym.SetSym(i, j, VtV.At(i, j))
		}
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(sym); !ok {
		return nil, kind.New(kind.SingularMatrix, "Fit2D: normal equations are not positive-definite")
	}
	var coeffs mat.VecDense
	if err := chol.SolveVecTo(&coeffs, &Vtz); err != nil {
		return nil, kind.New(kind.SingularMatrix, "Fit2D: solve failed: %v", err)
	}

	out, _ := New(2)
	for i, t := range terms {
		out.SetCoeff([]int{t.dx, t.dy}, coeffs.AtVec(i)) //nolint:errcheck
	}
	if meanX != 0 {
		shifted, err := out.Shift(0, -meanX)
		if err != nil {
			return nil, err
		}
		out = shifted
	}
	if meanY != 0 {
		shifted, err := out.Shift(1, -meanY)
		if err != nil {
			return nil, err
		}
		out = shifted
	}

	sum := 0.0
	for i, p := range xy {
		v, _ := out.EvalMulti([]float64{p[0], p[1]})
		d := v - z[i]
		sum += d * d
	}
	return &FitResult{Poly: out, MeanSquareResidual: sum / float64(len(xy))}, nil
}

func ipow(x float64, n int) float64 {
	v := 1.0
	for i := 0; i < n; i++ {
		v *= x
	}
	return v
}
