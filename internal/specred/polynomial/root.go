package polynomial

import (
	"math"

	"github.com/eso-vlt/vimos-specred/internal/specred/kind"
)

// RootParams configures Solve1D's acceptance heuristics.
type RootParams struct {
	// Mul scales the Newton correction (x := x - mul*p(x)/p'(x)); mul=1
	// is plain Newton-Raphson.
	Mul float64
	// RequirePositiveDerivative rejects convergence at a point where the
	// derivative is non-positive, tightening acceptance for monotone
	// problems.
	RequirePositiveDerivative bool
}

// Solve1D finds a root of a 1-D polynomial near x0 via accelerated
// Newton-Raphson (§4.3): x := x - mul*p(x)/p'(x), capped at 100*nc
// iterations. Terminates early when the correction no longer decreases
// (except on a sign change), when the derivative changes sign, or when
// the correction drops below |x|*eps. Fails DivisionByZero if the
// derivative stays zero; fails Continue on the iteration cap, with the
// best-known x attached as Diag.
func Solve1D(p *Polynomial, x0 float64, params RootParams) (float64, error) {
	if p.Dim != 1 {
		return 0, kind.New(kind.InvalidType, "Solve1D requires a 1-D polynomial, got dim=%d", p.Dim)
	}
	mul := params.Mul
	if mul == 0 {
		mul = 1
	}
	maxIter := 100 * (p.NTerms() + 1)
	const eps = 1e-15

	x := x0
	var prevCorrection float64
	var prevDerivSign float64
	haveLast := false

	for iter := 0; iter < maxIter; iter++ {
		v, d, err := p.EvalWithDerivative1D(x)
		if err != nil {
			return x, err
		}
		if d == 0 {
			return x, kind.New(kind.DivisionByZero, "derivative vanished at x=%v", x).WithDiag(x)
		}
		if params.RequirePositiveDerivative && d <= 0 {
			return x, kind.New(kind.IllegalInput, "derivative non-positive at x=%v", x).WithDiag(x)
		}

		derivSign := 1.0
		if d < 0 {
			derivSign = -1.0
		}
		if haveLast && derivSign != prevDerivSign {
			return x, nil
		}

		correction := mul * v / d
		if math.Abs(correction) < math.Abs(x)*eps {
			return x - correction, nil
		}

		if haveLast && math.Abs(correction) > math.Abs(prevCorrection) && sameSign(correction, prevCorrection) {
			return x, nil
		}

		x -= correction
		prevCorrection = correction
		prevDerivSign = derivSign
		haveLast = true
	}

	return x, kind.New(kind.Continue, "Newton-Raphson did not converge within %d iterations", maxIter).WithDiag(x)
}

func sameSign(a, b float64) bool {
	return (a >= 0) == (b >= 0)
}
