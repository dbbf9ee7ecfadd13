package polynomial

import "github.com/eso-vlt/vimos-specred/internal/specred/kind"

// denseCoeffs1D returns the 1-D coefficient array indexed by power,
//0..maxDegree[0], filling absent terms with 0.
func (p *Polynomial) denseCoeffs1D() []float64 {
	n := p.maxDegree[0]
	out := make([]float64, n+1)
	for _, key := range p.order {
		t := p.terms[key]
		out[t.exps[0]] = t.coeff
	}
	return out
}

// Eval1D evaluates a dim=1 polynomial at x via Horner's rule (2n FLOPs
// for n+1 coefficients).
func (p *Polynomial) Eval1D(x float64) (float64, error) {
	if p.Dim != 1 {
		return 0, kind.New(kind.InvalidType, "Eval1D requires a 1-D polynomial, got dim=%d", p.Dim)
	}
	c := p.denseCoeffs1D()
	acc := 0.0
	for i := len(c) - 1; i >= 0; i-- {
		acc = acc*x + c[i]
	}
	return acc, nil
}

// EvalWithDerivative1D jointly evaluates p(x) and p'(x) via nested Horner
// (4n FLOPs), avoiding a second full pass over the coefficients.
func (p *Polynomial) EvalWithDerivative1D(x float64) (value, deriv float64, err error) {
	if p.Dim != 1 {
		return 0, 0, kind.New(kind.InvalidType, "EvalWithDerivative1D requires a 1-D polynomial, got dim=%d", p.Dim)
	}
	c := p.denseCoeffs1D()
	value = c[len(c)-1]
	deriv = 0
	for i := len(c) - 2; i >= 0; i-- {
		deriv = deriv*x + value
		value = value*x + c[i]
	}
	return value, deriv, nil
}

// EvalDiff returns p(a) - p(b) for a 1-D polynomial.
func (p *Polynomial) EvalDiff(a, b float64) (float64, error) {
	va, err := p.Eval1D(a)
	if err != nil {
		return 0, err
	}
	vb, err := p.Eval1D(b)
	if err != nil {
		return 0, err
	}
	return va - vb, nil
}

// EvalVector fills a vector with p(x0 + i*d) for i = 0..n-1 (1-D only).
func (p *Polynomial) EvalVector(x0, d float64, n int) ([]float64, error) {
	if p.Dim != 1 {
		return nil, kind.New(kind.InvalidType, "EvalVector requires a 1-D polynomial, got dim=%d", p.Dim)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		v, err := p.Eval1D(x0 + float64(i)*d)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// EvalMulti evaluates a polynomial of any dimension at x by the
// brute-force scheme: build a per-dimension power table up to
// maxDegree[j] by repeated multiplication, then for each stored term
// multiply the per-dimension powers and accumulate.
func (p *Polynomial) EvalMulti(x []float64) (float64, error) {
	if len(x) != p.Dim {
		return 0, kind.New(kind.Incompatible, "EvalMulti: point has %d coords, polynomial dim is %d", len(x), p.Dim)
	}
	if p.Dim == 1 {
		return p.Eval1D(x[0])
	}
	powTable := make([][]float64, p.Dim)
	for j := 0; j < p.Dim; j++ {
		md := p.maxDegree[j]
		row := make([]float64, md+1)
		row[0] = 1
		for k := 1; k <= md; k++ {
			row[k] = row[k-1] * x[j]
		}
		powTable[j] = row
	}
	total := 0.0
	for _, key := range p.order {
		t := p.terms[key]
		term := t.coeff
		for j, e := range t.exps {
			term *= powTable[j][e]
		}
		total += term
	}
	return total, nil
}
