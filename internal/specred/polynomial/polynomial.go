// Package polynomial implements the L2 polynomial engine: uni- and
// multivariate polynomial construction, evaluation, calculus, shift of
// variable, least-squares fitting, and Newton-Raphson root finding
// (§3.5, §4.3).
//
// Storage follows the redesign note of §9.1: rather than the legacy
// manual-growth coefficient array, terms are kept in an ordered map
// keyed by exponent tuple, with a per-dimension max-degree cache
// recomputed on mutation.
package polynomial

import (
	"strconv"
	"strings"

	"github.com/eso-vlt/vimos-specred/internal/specred/kind"
)

type term struct {
	exps  []int
	coeff float64
}

// Polynomial holds dim >= 1 and a sparse set of non-zero terms. A
// polynomial with no stored terms evaluates to 0 everywhere (§3.5).
type Polynomial struct {
	Dim       int
	terms     map[string]*term
	order     []string
	maxDegree []int
}

// New constructs a zero polynomial of the given positive dimension.
func New(dim int) (*Polynomial, error) {
	if dim < 1 {
		return nil, kind.New(kind.IllegalInput, "polynomial dimension must be >= 1, got %d", dim)
	}
	return &Polynomial{Dim: dim, terms: make(map[string]*term), maxDegree: make([]int, dim)}, nil
}

func termKey(pows []int) string {
	var b strings.Builder
	for i, p := range pows {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(p))
	}
	return b.String()
}

func (p *Polynomial) validatePows(pows []int) error {
	if pows == nil {
		return kind.New(kind.NullInput, "exponent vector is nil")
	}
	if len(pows) != p.Dim {
		return kind.New(kind.Incompatible, "exponent vector has %d entries, polynomial dimension is %d", len(pows), p.Dim)
	}
	for _, v := range pows {
		if v < 0 {
			return kind.New(kind.IllegalInput, "negative exponent %d", v)
		}
	}
	return nil
}

// SetCoeff sets the coefficient of the term with exponents pows to c,
// overwriting an existing term or appending a new one. Setting c == 0 on
// an existing term deletes it (preserved legacy behaviour: a zero
// coefficient stores as absence, not as an explicit zero term).
func (p *Polynomial) SetCoeff(pows []int, c float64) error {
	if err := p.validatePows(pows); err != nil {
		return err
	}
	key := termKey(pows)
	if c == 0 {
		if _, ok := p.terms[key]; ok {
			delete(p.terms, key)
			p.removeFromOrder(key)
			p.recomputeMaxDegree()
		}
		return nil
	}
	if t, ok := p.terms[key]; ok {
		t.coeff = c
		return nil
	}
	p.terms[key] = &term{exps: append([]int(nil), pows...), coeff: c}
	p.order = append(p.order, key)
	for i, v := range pows {
		if v > p.maxDegree[i] {
			p.maxDegree[i] = v
		}
	}
	return nil
}

func (p *Polynomial) removeFromOrder(key string) {
	for i, k := range p.order {
		if k == key {
			p.order = append(p.order[:i], p.order[i+1:]...)
			return
		}
	}
}

func (p *Polynomial) recomputeMaxDegree() {
	md := make([]int, p.Dim)
	for _, key := range p.order {
		t := p.terms[key]
		for i, v := range t.exps {
			if v > md[i] {
				md[i] = v
			}
		}
	}
	p.maxDegree = md
}

// GetCoeff returns the coefficient of the term with exponents pows, or 0
// if absent.
func (p *Polynomial) GetCoeff(pows []int) (float64, error) {
	if err := p.validatePows(pows); err != nil {
		return 0, err
	}
	t, ok := p.terms[termKey(pows)]
	if !ok {
		return 0, nil
	}
	return t.coeff, nil
}

// Degree returns the maximum total degree (sum of exponents) over
// non-zero terms, 0 if the polynomial is empty.
func (p *Polynomial) Degree() int {
	best := 0
	for _, key := range p.order {
		t := p.terms[key]
		s := 0
		for _, e := range t.exps {
			s += e
		}
		if s > best {
			best = s
		}
	}
	return best
}

// MaxDegree returns the cached per-dimension maximum exponent.
func (p *Polynomial) MaxDegree() []int {
	return append([]int(nil), p.maxDegree...)
}

// NTerms returns the number of stored non-zero terms.
func (p *Polynomial) NTerms() int { return len(p.order) }

// Terms iterates stored terms in insertion order, calling fn(exps, coeff)
// for each. fn must not retain exps. Iteration is over a snapshot of the
// term set taken before the first call, so fn may safely mutate p (e.g.
// via SetCoeff) without corrupting the iteration.
func (p *Polynomial) Terms(fn func(exps []int, coeff float64)) {
	snapshot := make([]*term, len(p.order))
	for i, key := range p.order {
		snapshot[i] = p.terms[key]
	}
	for _, t := range snapshot {
		fn(t.exps, t.coeff)
	}
}

// Clone returns an independent deep copy.
func (p *Polynomial) Clone() *Polynomial {
	out, _ := New(p.Dim)
	for _, key := range p.order {
		t := p.terms[key]
		out.SetCoeff(append([]int(nil), t.exps...), t.coeff) //nolint:errcheck
	}
	return out
}

// Compare reports whether p and q are equal within tol on every term
// present in either polynomial (§9.2: fixes the legacy over-degree
// out-of-bounds read by comparing the matched exponent set rather than
// indexing by position; a term present in one and absent in the other
// counts as a mismatch only if its coefficient is non-zero by
// construction, which always holds for stored terms).
func Compare(p, q *Polynomial, tol float64) bool {
	if p.Dim != q.Dim {
		return false
	}
	seen := make(map[string]bool, len(p.order)+len(q.order))
	for _, key := range p.order {
		seen[key] = true
		qc := 0.0
		if t, ok := q.terms[key]; ok {
			qc = t.coeff
		}
		if absf(p.terms[key].coeff-qc) > tol {
			return false
		}
	}
	for _, key := range q.order {
		if seen[key] {
			continue
		}
		if absf(q.terms[key].coeff) > tol {
			return false
		}
	}
	return true
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
