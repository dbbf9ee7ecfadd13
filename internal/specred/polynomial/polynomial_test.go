package polynomial

import (
	"math"
	"testing"

	"github.com/eso-vlt/vimos-specred/internal/testutil"
)

func almostEqual(t *testing.T, got, want, tol float64, msg string) {
	t.Helper()
	t.Run(msg, func(t *testing.T) {
		testutil.AssertFloatEqual(t, got, want, tol)
	})
}

// §8.2.1: fit y = 1 + x + x^2 from 5 samples.
func TestFit1DSeedScenario(t *testing.T) {
	x := []float64{0, 1, 2, 3, 4}
	y := []float64{1, 3, 7, 13, 21}

	res, err := Fit1D(x, y, 0, 2)
	if err != nil {
		t.Fatalf("Fit1D: %v", err)
	}
	c0, _ := res.Poly.GetCoeff([]int{0})
	c1, _ := res.Poly.GetCoeff([]int{1})
	c2, _ := res.Poly.GetCoeff([]int{2})
	almostEqual(t, c0, 1, 1e-6, "c0")
	almostEqual(t, c1, 1, 1e-6, "c1")
	almostEqual(t, c2, 1, 1e-6, "c2")

	v, err := res.Poly.Eval1D(5)
	if err != nil {
		t.Fatal(err)
	}
	almostEqual(t, v, 31, 1e-6, "p(5)")

	_, d, err := res.Poly.EvalWithDerivative1D(5)
	if err != nil {
		t.Fatal(err)
	}
	almostEqual(t, d, 11, 1e-6, "p'(5)")
}

// §8.2.2: root of x^2-2 from x0=1 converges to sqrt(2).
func TestSolve1DSeedScenario(t *testing.T) {
	p, _ := New(1)
	p.SetCoeff([]int{0}, -2)
	p.SetCoeff([]int{2}, 1)

	root, err := Solve1D(p, 1, RootParams{Mul: 1})
	if err != nil {
		t.Fatalf("Solve1D: %v", err)
	}
	almostEqual(t, root, math.Sqrt2, 1e-9, "root")
}

// §8.2.3: multivariate set/get and degree after deletion.
func TestMultivariateSetGetSeedScenario(t *testing.T) {
	p, err := New(2)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.SetCoeff([]int{2, 1}, 5); err != nil {
		t.Fatal(err)
	}
	if err := p.SetCoeff([]int{0, 0}, 7); err != nil {
		t.Fatal(err)
	}

	v, err := p.GetCoeff([]int{2, 1})
	if err != nil {
		t.Fatal(err)
	}
	if v != 5 {
		t.Fatalf("get(2,1) = %v, want 5", v)
	}

	v, err = p.GetCoeff([]int{1, 1})
	if err != nil {
		t.Fatal(err)
	}
	if v != 0 {
		t.Fatalf("get(1,1) = %v, want 0", v)
	}

	if err := p.SetCoeff([]int{2, 1}, 0); err != nil {
		t.Fatal(err)
	}
	if p.Degree() != 0 {
		t.Fatalf("Degree() = %d, want 0 after removing the only non-constant term", p.Degree())
	}
}

func TestDerivativeMatchesNumeric(t *testing.T) {
	p, _ := New(1)
	p.SetCoeff([]int{0}, 1)
	p.SetCoeff([]int{1}, 2)
	p.SetCoeff([]int{3}, 5)

	dp, err := p.Derivative(0)
	if err != nil {
		t.Fatal(err)
	}
	const h = 1e-6
	for _, x := range []float64{-2, 0, 1, 3.5} {
		vPlus, _ := p.Eval1D(x + h)
		vMinus, _ := p.Eval1D(x - h)
		numeric := (vPlus - vMinus) / (2 * h)
		analytic, _ := dp.Eval1D(x)
		almostEqual(t, analytic, numeric, 1e-3, "derivative")
	}
}

func TestShiftMatchesEvaluationIdentity(t *testing.T) {
	p, _ := New(1)
	p.SetCoeff([]int{0}, 3)
	p.SetCoeff([]int{1}, -2)
	p.SetCoeff([]int{2}, 1)

	shifted, err := p.Shift(0, 2.5)
	if err != nil {
		t.Fatal(err)
	}
	for _, x := range []float64{-3, 0, 4, 10} {
		got, _ := shifted.Eval1D(x)
		want, _ := p.Eval1D(x + 2.5)
		almostEqual(t, got, want, 1e-9, "shift identity")
	}
}

func TestMultiplyScalarProperty(t *testing.T) {
	p, _ := New(1)
	p.SetCoeff([]int{0}, 1)
	p.SetCoeff([]int{2}, 4)

	scaled := MultiplyScalar(p, 3)
	for _, x := range []float64{-1, 0, 2, 7} {
		v, _ := p.Eval1D(x)
		got, _ := scaled.Eval1D(x)
		almostEqual(t, got, 3*v, 1e-9, "scale property")
	}
}

func TestAddProperty(t *testing.T) {
	p, _ := New(1)
	p.SetCoeff([]int{0}, 1)
	p.SetCoeff([]int{1}, 2)
	q, _ := New(1)
	q.SetCoeff([]int{1}, -1)
	q.SetCoeff([]int{2}, 5)

	sum, err := Add(p, q)
	if err != nil {
		t.Fatal(err)
	}
	for _, x := range []float64{-2, 0, 3} {
		vp, _ := p.Eval1D(x)
		vq, _ := q.Eval1D(x)
		got, _ := sum.Eval1D(x)
		almostEqual(t, got, vp+vq, 1e-9, "add property")
	}
}

func TestFit2DRecoversPlane(t *testing.T) {
	var xy [][2]float64
	var z []float64
	for _, x := range []float64{0, 1, 2, 3} {
		for _, y := range []float64{0, 1, 2, 3} {
			xy = append(xy, [2]float64{x, y})
			z = append(z, 2+3*x+4*y)
		}
	}
	res, err := Fit2D(xy, z, 1, 1, false)
	if err != nil {
		t.Fatalf("Fit2D: %v", err)
	}
	for i, p := range xy {
		got, _ := res.Poly.EvalMulti([]float64{p[0], p[1]})
		almostEqual(t, got, z[i], 1e-6, "fit2d eval")
	}
}

func TestExtractConstantSubstitution(t *testing.T) {
	p, _ := New(2)
	p.SetCoeff([]int{1, 0}, 2) // 2x
	p.SetCoeff([]int{0, 1}, 3) // 3y
	p.SetCoeff([]int{1, 1}, 1) // xy

	yConst, _ := New(1)
	yConst.SetCoeff([]int{0}, 5)

	extracted, err := p.Extract(1, yConst)
	if err != nil {
		t.Fatal(err)
	}
	// p(x,5) = 2x + 15 + 5x = 7x + 15
	for _, x := range []float64{-1, 0, 4} {
		got, _ := extracted.Eval1D(x)
		want := 7*x + 15
		almostEqual(t, got, want, 1e-9, "extract")
	}
}

func TestCompareFixesOverDegreeBound(t *testing.T) {
	p, _ := New(1)
	p.SetCoeff([]int{0}, 1)
	p.SetCoeff([]int{1}, 2)
	p.SetCoeff([]int{5}, 9)

	q, _ := New(1)
	q.SetCoeff([]int{0}, 1)
	q.SetCoeff([]int{1}, 2)

	if Compare(p, q, 1e-9) {
		t.Fatal("expected mismatch: p has a non-zero high-degree term q lacks")
	}
	q.SetCoeff([]int{5}, 9)
	if !Compare(p, q, 1e-9) {
		t.Fatal("expected match once term sets agree")
	}
}

func TestSolve1DDivisionByZero(t *testing.T) {
	p, _ := New(1)
	p.SetCoeff([]int{0}, 5) // constant polynomial, derivative always 0
	if _, err := Solve1D(p, 1, RootParams{Mul: 1}); err == nil {
		t.Fatal("expected DivisionByZero for constant polynomial")
	}
}

// Regression: with mindeg>0 the Hankel matrix must use the same
// x^(i+mindeg) basis as the right-hand side, else the fit is wrong.
func TestFit1DNonZeroMinDeg(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	var y []float64
	for _, v := range x {
		y = append(y, 2*v*v+3*v*v*v)
	}

	res, err := Fit1D(x, y, 2, 3)
	if err != nil {
		t.Fatalf("Fit1D: %v", err)
	}
	c2, _ := res.Poly.GetCoeff([]int{2})
	c3, _ := res.Poly.GetCoeff([]int{3})
	almostEqual(t, c2, 2, 1e-6, "c2")
	almostEqual(t, c3, 3, 1e-6, "c3")
	almostEqual(t, res.MeanSquareResidual, 0, 1e-6, "residual")
}

func TestFit1DDataNotFoundOnTooFewDistinctSamples(t *testing.T) {
	x := []float64{1, 1, 1}
	y := []float64{1, 2, 3}
	if _, err := Fit1D(x, y, 0, 2); err == nil {
		t.Fatal("expected DataNotFound for insufficient distinct samples")
	}
}
