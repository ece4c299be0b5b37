package shamir

import (
	"errors"
	"fmt"

	"github.com/nilmpc/mpcnode/internal/field"
)

// ErrReconstructionFailed is returned by Decode when the Gao decoder cannot
// find a unique polynomial of the expected degree consistent with the
// supplied points (spec §4.2 "REVEAL": "Fails with ReconstructionFailed if
// decoding does not return a unique polynomial").
var ErrReconstructionFailed = errors.New("shamir: reconstruction failed")

// rsPoly is a dense polynomial over ℤ_P used internally by the Gao decoder,
// coefficients low-to-high degree with no trailing-zero trimming guarantee
// until normalize is called.
type rsPoly struct {
	f *field.Field
	c []field.Element
}

func newRSPoly(f *field.Field, c []field.Element) *rsPoly {
	p := &rsPoly{f: f, c: append([]field.Element(nil), c...)}
	p.normalize()
	return p
}

func (p *rsPoly) normalize() {
	for len(p.c) > 0 && p.f.IsZero(p.c[len(p.c)-1]) {
		p.c = p.c[:len(p.c)-1]
	}
}

func (p *rsPoly) degree() int { return len(p.c) - 1 } // -1 means the zero polynomial

func (p *rsPoly) isZero() bool { return len(p.c) == 0 }

func (p *rsPoly) coeff(i int) field.Element {
	if i < 0 || i >= len(p.c) {
		return p.f.Zero()
	}
	return p.c[i]
}

func (p *rsPoly) add(q *rsPoly) *rsPoly {
	n := len(p.c)
	if len(q.c) > n {
		n = len(q.c)
	}
	out := make([]field.Element, n)
	for i := 0; i < n; i++ {
		out[i] = p.f.Add(p.coeff(i), q.coeff(i))
	}
	return newRSPoly(p.f, out)
}

func (p *rsPoly) sub(q *rsPoly) *rsPoly {
	n := len(p.c)
	if len(q.c) > n {
		n = len(q.c)
	}
	out := make([]field.Element, n)
	for i := 0; i < n; i++ {
		out[i] = p.f.Sub(p.coeff(i), q.coeff(i))
	}
	return newRSPoly(p.f, out)
}

func (p *rsPoly) mul(q *rsPoly) *rsPoly {
	if p.isZero() || q.isZero() {
		return newRSPoly(p.f, nil)
	}
	out := make([]field.Element, len(p.c)+len(q.c)-1)
	for i := range out {
		out[i] = p.f.Zero()
	}
	for i, a := range p.c {
		if p.f.IsZero(a) {
			continue
		}
		for j, b := range q.c {
			out[i+j] = p.f.Add(out[i+j], p.f.Mul(a, b))
		}
	}
	return newRSPoly(p.f, out)
}

func (p *rsPoly) scale(k field.Element) *rsPoly {
	out := make([]field.Element, len(p.c))
	for i, a := range p.c {
		out[i] = p.f.Mul(a, k)
	}
	return newRSPoly(p.f, out)
}

// divMod computes the quotient and remainder of p / q via schoolbook
// polynomial long division over the field.
func (p *rsPoly) divMod(q *rsPoly) (quotient, remainder *rsPoly, err error) {
	if q.isZero() {
		return nil, nil, fmt.Errorf("shamir: division by the zero polynomial")
	}
	lead, err := p.f.Inverse(q.c[q.degree()])
	if err != nil {
		return nil, nil, err
	}
	rem := newRSPoly(p.f, p.c)
	qd := q.degree()
	quotCoeffs := make([]field.Element, 0)
	for rem.degree() >= qd && !rem.isZero() {
		shift := rem.degree() - qd
		coeff := p.f.Mul(rem.c[rem.degree()], lead)
		for len(quotCoeffs) <= shift {
			quotCoeffs = append(quotCoeffs, p.f.Zero())
		}
		quotCoeffs[shift] = coeff

		termCoeffs := make([]field.Element, shift+1)
		for i := range termCoeffs {
			termCoeffs[i] = p.f.Zero()
		}
		termCoeffs[shift] = coeff
		term := newRSPoly(p.f, termCoeffs).mul(q)
		rem = rem.sub(term)
	}
	return newRSPoly(p.f, quotCoeffs), rem, nil
}

// eval evaluates p at x using Horner's method.
func (p *rsPoly) eval(x field.Element) field.Element {
	acc := p.f.Zero()
	for i := len(p.c) - 1; i >= 0; i-- {
		acc = p.f.Add(p.f.Mul(acc, x), p.c[i])
	}
	return acc
}

// interpolate returns the unique polynomial of degree < len(points) passing
// through every point, via Lagrange interpolation (full-degree, not capped
// at the expected secret-polynomial degree — this is g0 in Gao's notation).
func interpolate(f *field.Field, points []Point) (*rsPoly, error) {
	n := len(points)
	result := newRSPoly(f, nil)
	for i := 0; i < n; i++ {
		// Build the i-th Lagrange basis polynomial L_i(x) = prod_{j!=i} (x - x_j)/(x_i - x_j).
		basis := newRSPoly(f, []field.Element{f.One()})
		denom := f.One()
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			// (x - x_j)
			term := newRSPoly(f, []field.Element{f.Neg(points[j].X), f.One()})
			basis = basis.mul(term)
			denom = f.Mul(denom, f.Sub(points[i].X, points[j].X))
		}
		denomInv, err := f.Inverse(denom)
		if err != nil {
			return nil, fmt.Errorf("shamir: duplicate abscissa during interpolation: %w", err)
		}
		basis = basis.scale(f.Mul(points[i].Y, denomInv))
		result = result.add(basis)
	}
	return result, nil
}

// Decode reconstructs the secret from points using Gao's Reed-Solomon
// decoding algorithm, tolerating up to ⌊(n-k)/2⌋ arbitrarily corrupted
// points, n = len(points). k is the maximum allowed degree of the
// underlying secret polynomial plus one (i.e. k = t+1 for a degree-t
// sharing polynomial).
//
// With k = t+1 that is the robustness bound ⌊(n-t-1)/2⌋ (spec §3, §9
// "Error correction in REVEAL"). Decode takes no separate error count: the
// bound follows from n and k alone.
func Decode(f *field.Field, points []Point, k int) (field.Element, error) {
	n := len(points)
	if n == 0 {
		return field.Element{}, fmt.Errorf("shamir: cannot decode an empty point sequence")
	}
	if k <= 0 || k > n {
		return field.Element{}, fmt.Errorf("shamir: invalid degree bound k=%d for n=%d points", k, n)
	}

	// g1(x) = prod_i (x - x_i), degree n.
	g1 := newRSPoly(f, []field.Element{f.One()})
	for _, pt := range points {
		term := newRSPoly(f, []field.Element{f.Neg(pt.X), f.One()})
		g1 = g1.mul(term)
	}

	g0, err := interpolate(f, points)
	if err != nil {
		return field.Element{}, err
	}

	// Extended Euclidean algorithm on (g1, g0), stopping once the
	// remainder's degree drops below (n+k)/2.
	threshold := (n + k) / 2

	rPrev, r := g1, g0
	vPrev := newRSPoly(f, nil)           // v_{-1} = 0
	v := newRSPoly(f, []field.Element{f.One()}) // v_0 = 1

	for r.degree() >= threshold && !r.isZero() {
		quot, rem, derr := rPrev.divMod(r)
		if derr != nil {
			return field.Element{}, fmt.Errorf("%w: %v", ErrReconstructionFailed, derr)
		}
		rPrev, r = r, rem
		vPrev, v = v, vPrev.sub(quot.mul(v))
	}

	if v.isZero() {
		return field.Element{}, ErrReconstructionFailed
	}

	g, rem, err := r.divMod(v)
	if err != nil || !rem.isZero() {
		return field.Element{}, ErrReconstructionFailed
	}
	if g.degree() >= k {
		return field.Element{}, ErrReconstructionFailed
	}
	return g.coeff(0), nil
}

// ReconstructRobust recovers the secret from shares tolerating up to
// cluster.MaxCorruptions() arbitrarily corrupted shares (spec §8 "REVEAL:
// tolerates up to ⌊(n-t-1)/2⌋ arbitrarily corrupted shares").
func ReconstructRobust(f *field.Field, points []Point, threshold int) (field.Element, error) {
	return Decode(f, points, threshold+1)
}
