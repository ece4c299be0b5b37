// Package ring implements the ℤ_{2q} ring-tuple representation used by the
// protocols that need an extra bit beyond the prime field ℤ_P (spec §3,
// "Field / Ring"). An element is carried as a pair (m, b) with m ∈ ℤ_q (q the
// Sophie-Germain prime companion of the cluster's safe prime P) and
// b ∈ GF(2^8), bridged to a single ℤ_{2q} value via CRT.
package ring

import "crypto/rand"

// reducingPolynomial is the AES/Rijndael irreducible polynomial x^8+x^4+x^3+x+1
// (0x11B), the conventional choice for GF(2^8) multiplication and the one the
// original source's binary extension field uses.
const reducingPolynomial = 0x11B

// GF256 is an element of the binary extension field GF(2^8).
type GF256 struct {
	value byte
}

// NewGF256 wraps a raw byte as a GF256 element.
func NewGF256(v byte) GF256 { return GF256{value: v} }

// Zero is the additive identity.
func (GF256) Zero() GF256 { return GF256{} }

// One is the multiplicative identity.
func (GF256) One() GF256 { return GF256{value: 1} }

// Value returns the underlying byte.
func (g GF256) Value() byte { return g.value }

// Add is addition in GF(2^8), i.e. XOR (also serves as subtraction).
func (g GF256) Add(h GF256) GF256 { return GF256{value: g.value ^ h.value} }

// Sub is identical to Add in characteristic 2.
func (g GF256) Sub(h GF256) GF256 { return g.Add(h) }

// Neg is the identity in characteristic 2.
func (g GF256) Neg() GF256 { return g }

// Mul multiplies two GF(2^8) elements modulo the reducing polynomial using
// the standard carry-less (Russian-peasant) algorithm.
func (g GF256) Mul(h GF256) GF256 {
	var a, b uint16 = uint16(g.value), uint16(h.value)
	var result uint16
	for b != 0 {
		if b&1 != 0 {
			result ^= a
		}
		carry := a & 0x80
		a <<= 1
		if carry != 0 {
			a ^= reducingPolynomial
		}
		a &= 0xFF
		b >>= 1
	}
	return GF256{value: byte(result)}
}

// RandomGF256 draws a uniform element of GF(2^8).
func RandomGF256() (GF256, error) {
	var buf [1]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return GF256{}, err
	}
	return GF256{value: buf[0]}, nil
}

// Bit extracts the low bit of the element's byte representation, the
// projection used when bridging to ℤ_2 during CRT reconstruction.
func (g GF256) Bit() byte { return g.value & 1 }
