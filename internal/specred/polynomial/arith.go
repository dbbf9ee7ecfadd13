package polynomial

import "github.com/eso-vlt/vimos-specred/internal/specred/kind"

// Add returns p + q, requiring equal dimension.
func Add(p, q *Polynomial) (*Polynomial, error) {
	if p.Dim != q.Dim {
		return nil, kind.New(kind.Incompatible, "Add: dims %d and %d differ", p.Dim, q.Dim)
	}
	out := p.Clone()
	var addErr error
	q.Terms(func(exps []int, coeff float64) {
		if addErr != nil {
			return
		}
		existing, err := out.GetCoeff(exps)
		if err != nil {
			addErr = err
			return
		}
		addErr = out.SetCoeff(exps, existing+coeff)
	})
	if addErr != nil {
		return nil, addErr
	}
	return out, nil
}

// MultiplyScalar returns scale*p.
func MultiplyScalar(p *Polynomial, scale float64) *Polynomial {
	out := p.Clone()
	out.Terms(func(exps []int, coeff float64) {
		out.SetCoeff(exps, coeff*scale) //nolint:errcheck
	})
	return out
}
