// Package eddsa implements threshold-EdDSA signing (spec §4.2 "Signing":
// EDDSA-SIGN) as a FROST-style two-round protocol, wrapping
// filippo.io/edwards25519 for curve arithmetic.
//
// This is a genuinely distinct state machine from internal/statemachine/ecdsa,
// not a parameterised instance of the same "sign" automaton: FROST's round
// shape (commit nonces, derive per-signer binding factors, combine, respond)
// has no Beaver-triple multiplication or nonce-inversion step at all, unlike
// the CGGMP21-shaped ECDSA-SIGN — the two protocols only share the idea of
// "Shamir-share a signing key", not a signing round structure.
package eddsa

import (
	"math/big"

	"filippo.io/edwards25519"
	"github.com/zeebo/blake3"

	"github.com/nilmpc/mpcnode/internal/field"
)

// edwardsOrder is edwards25519's prime subgroup order L = 2^252 +
// 27742317777372353535851937790883648493.
var edwardsOrder, _ = new(big.Int).SetString("1000000000000000000000000000000014DEF9DEA2F79CD65812631A5CF5D3ED", 16)

// ScalarField is the prime field ℤ_L that EDDSA-SIGN's Shamir arithmetic
// runs over — L is prime but not a safe prime, the same reasoning
// internal/statemachine/ecdsa.ScalarField documents for secp256k1's order.
func ScalarField() *field.Field {
	return field.NewUnsafeModulus(edwardsOrder)
}

// scalarFromElement converts a ℤ_L field element to an edwards25519 scalar.
// SetUniformBytes accepts any 64-byte input and reduces mod L, so the
// element's big-endian bytes are reversed to little-endian and padded
// rather than needing an already-canonical 32-byte encoding.
func scalarFromElement(e field.Element) *edwards25519.Scalar {
	b := e.BigInt().Bytes()
	wide := make([]byte, 64)
	for i, bi := range b {
		wide[len(b)-1-i] = bi
	}
	s, err := edwards25519.NewScalar().SetUniformBytes(wide)
	if err != nil {
		panic("eddsa: SetUniformBytes rejected a 64-byte input: " + err.Error())
	}
	return s
}

// elementFromScalar is scalarFromElement's inverse.
func elementFromScalar(f *field.Field, s *edwards25519.Scalar) field.Element {
	le := s.Bytes()
	be := make([]byte, len(le))
	for i, b := range le {
		be[len(le)-1-i] = b
	}
	return f.Elem(new(big.Int).SetBytes(be))
}

func scalarBaseMult(s *edwards25519.Scalar) *edwards25519.Point {
	return edwards25519.NewIdentityPoint().ScalarBaseMult(s)
}

func scalarMultPoint(s *edwards25519.Scalar, p *edwards25519.Point) *edwards25519.Point {
	return edwards25519.NewIdentityPoint().ScalarMult(s, p)
}

func addPoints(a, b *edwards25519.Point) *edwards25519.Point {
	return edwards25519.NewIdentityPoint().Add(a, b)
}

// hashToScalar reduces a domain-separated transcript to a scalar mod L.
// RFC 8032 defines Ed25519's own challenge hash as a single SHA-512 over
// the transcript; this uses two chained blake3 digests (32 bytes each,
// concatenated) to fill SetUniformBytes's 64-byte input instead, keeping
// one hash primitive across the whole signing round shape (the same
// choice internal/statemachine/ecdsa.DKG and this package's own DKG make
// for commitments). A real RFC 8032/FROST-RFC 9591 verifier would reject
// signatures produced this way — flagged in DESIGN.md, not hidden.
func hashToScalar(label string, parts ...[]byte) *edwards25519.Scalar {
	h1 := blake3.New()
	_, _ = h1.Write([]byte(label))
	for _, p := range parts {
		_, _ = h1.Write(p)
	}
	d1 := h1.Sum(nil)

	h2 := blake3.New()
	_, _ = h2.Write(d1)
	_, _ = h2.Write([]byte("eddsa-extend"))
	d2 := h2.Sum(nil)

	wide := make([]byte, 0, 64)
	wide = append(wide, d1...)
	wide = append(wide, d2...)
	s, err := edwards25519.NewScalar().SetUniformBytes(wide)
	if err != nil {
		panic("eddsa: SetUniformBytes rejected a 64-byte input: " + err.Error())
	}
	return s
}
