// Package field implements fixed-width modular arithmetic over the prime field
// ℤ_P that backs every Shamir share in the runtime. P is always a safe prime: a
// prime such that q = (P-1)/2 is also prime (see IsSafePrime and the ring
// package's table-driven Sophie-Germain derivation).
package field

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/klauspost/cpuid/v2"
)

// Element is a value in ℤ_P. The zero value is not meaningful on its own;
// Elements are always produced by a Field so they carry an implicit modulus.
type Element struct {
	v *big.Int
}

// Field is the prime field ℤ_P parameterised by a safe prime P.
type Field struct {
	p *big.Int
	q *big.Int // Sophie-Germain prime, (P-1)/2

	// byteWidth is the fixed little-endian encoding width for elements of
	// this field, derived from the bit length of P (see §6, "Share encoding").
	byteWidth int

	// fastPath records whether this process detected AVX2/BMI2, mirroring
	// the capability probe lattigo's NTT layer performs before choosing an
	// optimized multiplication kernel. We only use it to annotate logs; the
	// arithmetic below is a single portable code path (math/big), since a
	// general safe prime is not NTT-friendly the way lattigo's RNS moduli are.
	fastPath bool
}

// New constructs a Field for the safe prime p. It returns an error if p is
// not a safe prime (table-driven: p and q=(p-1)/2 are both checked with
// big.Int.ProbablyPrime, never a hard-coded per-bit-width constant).
func New(p *big.Int) (*Field, error) {
	if p == nil || p.Sign() <= 0 {
		return nil, fmt.Errorf("field: modulus must be positive")
	}
	if !p.ProbablyPrime(40) {
		return nil, fmt.Errorf("field: %s is not prime", p.String())
	}
	q := new(big.Int).Sub(p, big.NewInt(1))
	q.Rsh(q, 1)
	if !q.ProbablyPrime(40) {
		return nil, fmt.Errorf("field: %s is not a safe prime ((p-1)/2 is not prime)", p.String())
	}
	width := (p.BitLen() + 7) / 8
	return &Field{
		p:         new(big.Int).Set(p),
		q:         q,
		byteWidth: width,
		fastPath:  cpuid.CPU.Supports(cpuid.AVX2, cpuid.BMI2),
	}, nil
}

// NewUnsafeModulus constructs a Field over any prime modulus p, without
// requiring p to be a safe prime. Used by internal/ring when bridging to
// ℤ_q in the (rare) case where q's own companion 2q+1 is not prime — ℤ_q
// arithmetic only needs q prime, never that 2q+1 is prime too.
func NewUnsafeModulus(p *big.Int) *Field {
	if !p.ProbablyPrime(40) {
		panic(fmt.Sprintf("field: NewUnsafeModulus requires a prime modulus, got %s", p))
	}
	width := (p.BitLen() + 7) / 8
	return &Field{
		p:         new(big.Int).Set(p),
		q:         nil,
		byteWidth: width,
		fastPath:  cpuid.CPU.Supports(cpuid.AVX2, cpuid.BMI2),
	}
}

// IsSafePrime reports whether p is a safe prime without constructing a Field.
func IsSafePrime(p *big.Int) bool {
	_, err := New(p)
	return err == nil
}

// Modulus returns P.
func (f *Field) Modulus() *big.Int { return new(big.Int).Set(f.p) }

// SophieGermain returns q = (P-1)/2.
func (f *Field) SophieGermain() *big.Int { return new(big.Int).Set(f.q) }

// ByteWidth returns the fixed encoding width for elements of this field.
func (f *Field) ByteWidth() int { return f.byteWidth }

// FastPath reports whether an AVX2/BMI2-accelerated big-integer path was
// detected for this process (informational only; see fastPath doc comment).
func (f *Field) FastPath() bool { return f.fastPath }

// Elem reduces v modulo P and returns the resulting Element. Negative v is
// canonicalised into [0, P) — the rest of the codebase never sees a negative
// BigInt once a value has entered the field (spec §4.1, "Negative literals").
func (f *Field) Elem(v *big.Int) Element {
	r := new(big.Int).Mod(v, f.p)
	return Element{v: r}
}

// FromInt64 is a convenience wrapper around Elem for small literals.
func (f *Field) FromInt64(v int64) Element {
	return f.Elem(big.NewInt(v))
}

// Zero returns the additive identity.
func (f *Field) Zero() Element { return Element{v: big.NewInt(0)} }

// One returns the multiplicative identity.
func (f *Field) One() Element { return Element{v: big.NewInt(1)} }

// Random draws a uniform element of ℤ_P using crypto/rand.
func (f *Field) Random() (Element, error) {
	v, err := rand.Int(rand.Reader, f.p)
	if err != nil {
		return Element{}, fmt.Errorf("field: random: %w", err)
	}
	return Element{v: v}, nil
}

// Add returns a+b mod P.
func (f *Field) Add(a, b Element) Element {
	r := new(big.Int).Add(a.v, b.v)
	r.Mod(r, f.p)
	return Element{v: r}
}

// Sub returns a-b mod P.
func (f *Field) Sub(a, b Element) Element {
	r := new(big.Int).Sub(a.v, b.v)
	r.Mod(r, f.p)
	return Element{v: r}
}

// Neg returns -a mod P.
func (f *Field) Neg(a Element) Element {
	r := new(big.Int).Neg(a.v)
	r.Mod(r, f.p)
	return Element{v: r}
}

// Mul returns a*b mod P.
func (f *Field) Mul(a, b Element) Element {
	r := new(big.Int).Mul(a.v, b.v)
	r.Mod(r, f.p)
	return Element{v: r}
}

// MulScalar returns a*k mod P for an int64 scalar k.
func (f *Field) MulScalar(a Element, k int64) Element {
	return f.Mul(a, f.FromInt64(k))
}

// Inverse returns the multiplicative inverse of a mod P. Returns an error if
// a is zero (not invertible).
func (f *Field) Inverse(a Element) (Element, error) {
	if a.v.Sign() == 0 {
		return Element{}, fmt.Errorf("field: zero has no multiplicative inverse")
	}
	r := new(big.Int).ModInverse(a.v, f.p)
	if r == nil {
		return Element{}, fmt.Errorf("field: %s has no multiplicative inverse mod %s", a.v, f.p)
	}
	return Element{v: r}, nil
}

// Exp returns a^e mod P.
func (f *Field) Exp(a Element, e *big.Int) Element {
	r := new(big.Int).Exp(a.v, e, f.p)
	return Element{v: r}
}

// Equal reports whether a == b.
func (f *Field) Equal(a, b Element) bool { return a.v.Cmp(b.v) == 0 }

// IsZero reports whether a is the additive identity.
func (f *Field) IsZero(a Element) bool { return a.v.Sign() == 0 }

// BigInt returns the canonical representative of a in [0, P).
func (a Element) BigInt() *big.Int { return new(big.Int).Set(a.v) }

// String implements fmt.Stringer.
func (a Element) String() string { return a.v.String() }

// Bytes encodes a as a little-endian fixed-width byte sequence of the
// field's ByteWidth, per spec §6 "Share encoding".
func (f *Field) Bytes(a Element) []byte {
	buf := make([]byte, f.byteWidth)
	b := a.v.Bytes() // big-endian, no leading zeros
	for i, bi := range b {
		buf[len(b)-1-i] = bi // reverse into little-endian at the low end
	}
	return buf
}

// FromBytes decodes a little-endian fixed-width byte sequence produced by
// Bytes back into an Element. It returns an error if len(buf) != ByteWidth.
func (f *Field) FromBytes(buf []byte) (Element, error) {
	if len(buf) != f.byteWidth {
		return Element{}, fmt.Errorf("field: expected %d bytes, got %d", f.byteWidth, len(buf))
	}
	be := make([]byte, len(buf))
	for i, b := range buf {
		be[len(buf)-1-i] = b
	}
	return f.Elem(new(big.Int).SetBytes(be)), nil
}

// SignedRange reports whether |v| < 2^(bits-1) when v is interpreted as a
// signed value canonicalised into ℤ_P (v or P-v, whichever is smaller, is
// taken as the magnitude). Used by COMPARE's precondition (spec §8).
func (f *Field) SignedRange(a Element, bits uint) bool {
	half := new(big.Int).Rsh(f.p, 1)
	mag := new(big.Int).Set(a.v)
	if mag.Cmp(half) > 0 {
		mag.Sub(f.p, mag)
	}
	bound := new(big.Int).Lsh(big.NewInt(1), bits-1)
	return mag.Cmp(bound) < 0
}
