package polynomial

import "github.com/eso-vlt/vimos-specred/internal/specred/kind"

// Derivative returns d/dx_i of p, preserving dimension. Terms independent
// of x_i vanish; surviving terms have pows[i] decremented and their
// coefficient multiplied by the former pows[i].
func (p *Polynomial) Derivative(i int) (*Polynomial, error) {
	if i < 0 || i >= p.Dim {
		return nil, kind.New(kind.OutOfRange, "dimension index %d out of range [0,%d)", i, p.Dim)
	}
	out, _ := New(p.Dim)
	p.Terms(func(exps []int, coeff float64) {
		if exps[i] == 0 {
			return
		}
		newExps := append([]int(nil), exps...)
		newCoeff := coeff * float64(newExps[i])
		newExps[i]--
		out.SetCoeff(newExps, newCoeff) //nolint:errcheck
	})
	return out, nil
}

// binomial returns C(n,k) for small n via Pascal's recurrence (n is
// bounded by polynomial degree, never large enough to need a closed
// form).
func binomial(n, k int) float64 {
	if k < 0 || k > n {
		return 0
	}
	row := make([]float64, n+1)
	row[0] = 1
	for r := 1; r <= n; r++ {
		for c := r; c >= 1; c-- {
			row[c] += row[c-1]
		}
	}
	return row[k]
}

// shift1D computes the coefficients of p(x+u) for a dense 1-D coefficient
// array c (increasing power), via the standard binomial-coefficient
// convolution, n(n-1) FLOPs for n coefficients.
func shift1D(c []float64, u float64) []float64 {
	n := len(c) - 1
	out := make([]float64, n+1)
	upow := make([]float64, n+1)
	upow[0] = 1
	for i := 1; i <= n; i++ {
		upow[i] = upow[i-1] * u
	}
	for k := 0; k <= n; k++ {
		sum := 0.0
		for j := k; j <= n; j++ {
			sum += c[j] * binomial(j, k) * upow[j-k]
		}
		out[k] = sum
	}
	return out
}

// Shift returns a polynomial q such that q(x) == p(x + u*e_i), where e_i
// is the i-th unit vector. 1-D is computed directly; 2-D is handled by
// iterating the 1-D shift across cross-sections fixed in the other
// dimension. Higher dimensions are unsupported (§4.3).
func (p *Polynomial) Shift(i int, u float64) (*Polynomial, error) {
	if i < 0 || i >= p.Dim {
		return nil, kind.New(kind.OutOfRange, "dimension index %d out of range [0,%d)", i, p.Dim)
	}
	switch p.Dim {
	case 1:
		c := p.denseCoeffs1D()
		shifted := shift1D(c, u)
		out, _ := New(1)
		for k, v := range shifted {
			if v != 0 {
				out.SetCoeff([]int{k}, v) //nolint:errcheck
			}
		}
		return out, nil
	case 2:
		other := 1 - i
		groups := make(map[int][]float64)
		maxOther := p.maxDegree[other]
		maxSelf := p.maxDegree[i]
		for g := 0; g <= maxOther; g++ {
			groups[g] = make([]float64, maxSelf+1)
		}
		p.Terms(func(exps []int, coeff float64) {
			groups[exps[other]][exps[i]] = coeff
		})
		out, _ := New(2)
		for g, coeffs := range groups {
			shifted := shift1D(coeffs, u)
			for k, v := range shifted {
				if v == 0 {
					continue
				}
				exps := make([]int, 2)
				exps[i] = k
				exps[other] = g
				out.SetCoeff(exps, v) //nolint:errcheck
			}
		}
		return out, nil
	default:
		return nil, kind.New(kind.Unsupported, "Shift is unsupported for dimension %d", p.Dim)
	}
}

// Extract evaluates x_i := other (a constant, i.e. degree-0, polynomial
// of dimension p.Dim-1) and returns the resulting polynomial of dimension
// p.Dim-1. Non-constant other is unsupported (§4.3: "currently restricted
// to other of degree 0").
func (p *Polynomial) Extract(i int, other *Polynomial) (*Polynomial, error) {
	if i < 0 || i >= p.Dim {
		return nil, kind.New(kind.OutOfRange, "dimension index %d out of range [0,%d)", i, p.Dim)
	}
	if p.Dim < 2 {
		return nil, kind.New(kind.Unsupported, "Extract requires dim >= 2, got %d", p.Dim)
	}
	if other.Dim != p.Dim-1 {
		return nil, kind.New(kind.Incompatible, "Extract: other has dim %d, expected %d", other.Dim, p.Dim-1)
	}
	if other.Degree() > 0 {
		return nil, kind.New(kind.Unsupported, "Extract: other must be a degree-0 (constant) polynomial")
	}
	val, err := other.GetCoeff(make([]int, other.Dim))
	if err != nil {
		return nil, err
	}

	out, _ := New(p.Dim - 1)
	powCache := map[int]float64{0: 1}
	powOf := func(e int) float64 {
		if v, ok := powCache[e]; ok {
			return v
		}
		v := 1.0
		for k := 0; k < e; k++ {
			v *= val
		}
		powCache[e] = v
		return v
	}
	p.Terms(func(exps []int, coeff float64) {
		newCoeff := coeff * powOf(exps[i])
		newExps := make([]int, 0, p.Dim-1)
		for j, e := range exps {
			if j == i {
				continue
			}
			newExps = append(newExps, e)
		}
		existing, _ := out.GetCoeff(newExps)
		out.SetCoeff(newExps, existing+newCoeff) //nolint:errcheck
	})
	return out, nil
}
