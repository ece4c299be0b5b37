// Package ecdsa implements the threshold-ECDSA protocol family (spec §4.2
// "Signing": ECDSA-DKG, ECDSA-AUX-INFO, ECDSA-SIGN), wrapping
// github.com/decred/dcrd/dcrec/secp256k1/v4 for curve arithmetic and
// reusing internal/statemachine's generic Shamir-share primitives
// (Mul(share·share), Reveal, the PREP-* generators) parameterised over the
// curve's scalar field instead of the general ℤ_P computation field.
//
// This is a CGGMP21-shaped composition, not a from-scratch re-derivation
// of CGGMP21's Paillier/zk machinery: the real protocol's aux-info round
// establishes Paillier keys and Pedersen parameters with extensive
// zero-knowledge well-formedness proofs; this package establishes the same
// round *shape* (see auxinfo.go) without reimplementing that proof system,
// which is out of scope for this exercise — flagged in DESIGN.md rather
// than silently passed off as production-grade.
package ecdsa

import (
	"fmt"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/nilmpc/mpcnode/internal/field"
)

// curveOrder is secp256k1's well-known group order n.
var curveOrder, _ = new(big.Int).SetString("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEBAAEDCE6AF48A03BBFD25E8CD0364141", 16)

// ScalarField returns the prime field ℤ_n that ECDSA-DKG/AUX-INFO/SIGN
// share arithmetic runs over. n is prime but not a safe prime, so this
// uses NewUnsafeModulus rather than the computation field's field.New
// (the ring package's own rationale for NewUnsafeModulus applies
// identically here: the sharing math only needs n prime).
func ScalarField() *field.Field {
	return field.NewUnsafeModulus(curveOrder)
}

// scalarFromElement converts a ℤ_n field element to a secp256k1 scalar.
func scalarFromElement(e field.Element) *secp256k1.ModNScalar {
	var s secp256k1.ModNScalar
	b := e.BigInt().Bytes()
	padded := make([]byte, 32)
	copy(padded[32-len(b):], b)
	s.SetByteSlice(padded)
	return &s
}

// elementFromScalar is scalarFromElement's inverse.
func elementFromScalar(f *field.Field, s *secp256k1.ModNScalar) field.Element {
	var b [32]byte
	s.PutBytesUnchecked(b[:])
	return f.Elem(new(big.Int).SetBytes(b[:]))
}

// scalarBaseMult returns scalar*G in affine coordinates.
func scalarBaseMult(s *secp256k1.ModNScalar) *secp256k1.JacobianPoint {
	var p secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(s, &p)
	p.ToAffine()
	return &p
}

// addPoints returns a+b in affine coordinates.
func addPoints(a, b *secp256k1.JacobianPoint) *secp256k1.JacobianPoint {
	var sum secp256k1.JacobianPoint
	secp256k1.AddNonConst(a, b, &sum)
	sum.ToAffine()
	return &sum
}

// scalarMultPoint returns s*p in affine coordinates.
func scalarMultPoint(s *secp256k1.ModNScalar, p *secp256k1.JacobianPoint) *secp256k1.JacobianPoint {
	var out secp256k1.JacobianPoint
	secp256k1.ScalarMultNonConst(s, p, &out)
	out.ToAffine()
	return &out
}

// encodePoint/decodePoint are the fixed 64-byte X||Y wire encoding shared
// by every round in this package that exchanges a curve point.
func encodePoint(p *secp256k1.JacobianPoint) []byte {
	xb := p.X.Bytes()
	yb := p.Y.Bytes()
	out := make([]byte, 0, 64)
	out = append(out, xb[:]...)
	out = append(out, yb[:]...)
	return out
}

func decodePoint(body []byte) (*secp256k1.JacobianPoint, error) {
	if len(body) < 64 {
		return nil, fmt.Errorf("ecdsa: point payload too short")
	}
	var x, y secp256k1.FieldVal
	x.SetByteSlice(body[:32])
	y.SetByteSlice(body[32:64])
	return &secp256k1.JacobianPoint{X: x, Y: y, Z: *new(secp256k1.FieldVal).SetInt(1)}, nil
}

// hashToScalar reduces a message digest (already hashed by the caller, per
// ECDSA convention) to a scalar mod n.
func hashToScalar(f *field.Field, digest []byte) field.Element {
	v := new(big.Int).SetBytes(digest)
	return f.Elem(v)
}
