// Package shamir implements Shamir secret sharing over the field package's
// ℤ_P and the Gao decoder used by REVEAL for robust reconstruction up to
// ⌊(n-t-1)/2⌋ corrupted shares (spec §3 "Share", §9 "Error correction in
// REVEAL"). Grounded on the Feldman-VSS/Lagrange shape of
// `37da17ec_wyf-ACCEPT-eth2030__pkg-crypto-threshold.go.go` and the
// Thresholdizer/Combiner/ShamirPublicPoint naming of
// lattigo's `drlwe/threshold.go`.
package shamir

import (
	"fmt"

	"github.com/nilmpc/mpcnode/internal/field"
)

// Polynomial is a dense polynomial over ℤ_P, coefficients ordered low-to-high
// degree: Coeffs[0] is the constant term (the shared secret).
type Polynomial struct {
	f      *field.Field
	Coeffs []field.Element
}

// Degree returns the polynomial's degree.
func (p *Polynomial) Degree() int { return len(p.Coeffs) - 1 }

// Eval evaluates the polynomial at x using Horner's method.
func (p *Polynomial) Eval(x field.Element) field.Element {
	f := p.f
	acc := f.Zero()
	for i := len(p.Coeffs) - 1; i >= 0; i-- {
		acc = f.Add(f.Mul(acc, x), p.Coeffs[i])
	}
	return acc
}

// RandomPolynomial samples a degree-t polynomial with the given constant
// term (the secret), the rest of the coefficients uniform over ℤ_P.
func RandomPolynomial(f *field.Field, secret field.Element, t int) (*Polynomial, error) {
	if t < 0 {
		return nil, fmt.Errorf("shamir: degree must be non-negative, got %d", t)
	}
	coeffs := make([]field.Element, t+1)
	coeffs[0] = secret
	for i := 1; i <= t; i++ {
		c, err := f.Random()
		if err != nil {
			return nil, fmt.Errorf("shamir: sampling coefficient %d: %w", i, err)
		}
		coeffs[i] = c
	}
	return &Polynomial{f: f, Coeffs: coeffs}, nil
}

// Point is one evaluation (x, f(x)) of a sharing polynomial.
type Point struct {
	X field.Element
	Y field.Element
}

// lagrangeAtZero interpolates the unique polynomial of degree < len(points)
// through points and evaluates it at x=0 — the non-robust reconstruction
// used when every share is trusted (spec §8 "Round-trip").
func lagrangeAtZero(f *field.Field, points []Point) (field.Element, error) {
	if len(points) == 0 {
		return field.Element{}, fmt.Errorf("shamir: cannot interpolate an empty point sequence")
	}
	res := f.Zero()
	for i, pi := range points {
		num := f.One()
		den := f.One()
		for j, pj := range points {
			if i == j {
				continue
			}
			num = f.Mul(num, f.Neg(pj.X))
			den = f.Mul(den, f.Sub(pi.X, pj.X))
		}
		denInv, err := f.Inverse(den)
		if err != nil {
			return field.Element{}, fmt.Errorf("shamir: duplicate abscissa in point sequence: %w", err)
		}
		term := f.Mul(f.Mul(num, denInv), pi.Y)
		res = f.Add(res, term)
	}
	return res, nil
}
