package ring

import (
	"fmt"
	"math/big"

	"github.com/nilmpc/mpcnode/internal/field"
)

// Ring represents ℤ_{2q} via its companion prime-field ℤ_q (q the
// Sophie-Germain prime of the cluster's safe prime P).
type Ring struct {
	q *field.Field
}

// New constructs a Ring over ℤ_q.
func New(q *big.Int) (*Ring, error) {
	if !q.ProbablyPrime(40) {
		return nil, fmt.Errorf("ring: q=%s is not prime", q)
	}
	// field.New enforces the "safe prime" property (p=2q+1 also prime) on
	// its argument; here we only need ℤ_q's arithmetic, not that property,
	// so we build the Field directly via a minimal safe-prime pair when q
	// itself is a Sophie-Germain prime (2q+1 prime) and fall back to a raw
	// modulus wrapper otherwise — ℤ_q arithmetic never depends on 2q+1
	// being prime, only the bridging prime P does.
	p := new(big.Int).Add(new(big.Int).Lsh(q, 1), big.NewInt(1))
	if p.ProbablyPrime(40) {
		f, err := field.New(p)
		if err != nil {
			return nil, err
		}
		return &Ring{q: f}, nil
	}
	return &Ring{q: field.NewUnsafeModulus(q)}, nil
}

// Q returns the modulus q.
func (r *Ring) Q() *big.Int { return r.q.Modulus() }

// Tuple is an element of ℤ_{2q} represented as (m, b) with m ∈ ℤ_q and
// b ∈ GF(2^8) (spec §3, §GLOSSARY "Ring tuple").
type Tuple struct {
	M field.Element
	B GF256
}

// NewTuple constructs a ring tuple from its components.
func NewTuple(m field.Element, b GF256) Tuple { return Tuple{M: m, B: b} }

// Add is component-wise addition: m's add mod q, b's add (XOR) in GF(2^8).
func (r *Ring) Add(a, b Tuple) Tuple {
	return Tuple{M: r.q.Add(a.M, b.M), B: a.B.Add(b.B)}
}

// Sub is component-wise subtraction.
func (r *Ring) Sub(a, b Tuple) Tuple {
	return Tuple{M: r.q.Sub(a.M, b.M), B: a.B.Sub(b.B)}
}

// Neg negates both components.
func (r *Ring) Neg(a Tuple) Tuple {
	return Tuple{M: r.q.Neg(a.M), B: a.B.Neg()}
}

// MulPublic multiplies a tuple by a public scalar component-wise (needed by
// LOCAL protocols on ring tuples, e.g. scaling by a public bit).
func (r *Ring) MulPublic(a Tuple, m field.Element, b GF256) Tuple {
	return Tuple{M: r.q.Mul(a.M, m), B: a.B.Mul(b)}
}

// CRT reconstructs the unique x in [0, 2q) such that x ≡ m (mod q) and
// x ≡ (b mod 2) (mod 2), the bridge from the ring-tuple representation to a
// concrete ℤ_{2q} value (spec §3 "CRT as the bridge to ℤ_2q").
//
// q is odd (it is prime and > 2), so gcd(q,2)=1 and CRT applies directly:
// x = m if m's parity already matches the target bit, else x = m+q.
func (r *Ring) CRT(t Tuple) *big.Int {
	m := t.M.BigInt()
	q := r.q.Modulus()
	wantBit := t.B.Bit()
	mBit := byte(m.Bit(0))
	if mBit == wantBit {
		return new(big.Int).Set(m)
	}
	return new(big.Int).Add(m, q)
}
