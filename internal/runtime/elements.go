package runtime

import "github.com/nilmpc/mpcnode/internal/shamir"

// Triple is one multiplication triple ([a],[b],[c]) with c=a*b, the
// correlated randomness Mul(share·share) consumes (spec §4.2 "Mul(share·
// share) — consumes one triple").
type Triple struct{ A, B, C shamir.Share }

// BitwiseRandom is one RAN-BITWISE element: a uniform ℓ-bit value's share
// alongside individual shares of each of its bits (spec §4.2 "RAN-BITWISE
// (random ℓ-bit number, bit shares)").
type BitwiseRandom struct {
	Value shamir.Share
	Bits  []shamir.Share // little-endian, len == bit width
}

// CompareTuple is the correlated randomness the Compare worked example
// consumes: a uniform ℓ-bit r (value + bit shares) used to mask the
// revealed difference, plus the multiplication triples the bitwise
// less-than circuit needs to fold its running-equality chain (spec §4.2
// "Compare (worked example)"; from the pool's point of view this whole
// bundle is "one Compare element" — the internal triple count is an
// implementation detail of the online protocol, not separately metered).
type CompareTuple struct {
	R        BitwiseRandom
	Bitwidth int
	Triples  []Triple // length 2*(Bitwidth-1), consumed by the bit-less-than chain
}

// EqualityTuple is the correlated randomness a zero-test (EQUALS-*)
// consumes: a uniform nonzero share used to mask the revealed
// a-b so the difference's zero/nonzero-ness is the only thing leaked
// (standard "randomize then reveal" zero-test, adapted to spec's
// EqualityPublicOutput / EqualitySecretOutput pool kinds).
type EqualityTuple struct{ Mask shamir.Share }

// TruncTuple is the correlated randomness TRUNCPR/TRUNC/MOD2M consume: a
// random value split into low-order and high-order shares around the
// truncation point m (the standard masked-truncation trick: reveal x+r,
// then subtract the known low bits of r locally).
type TruncTuple struct {
	Low  shamir.Share // share of r mod 2^m
	High shamir.Share // share of r div 2^m
	M    int
}

// DivisorTuple is the correlated randomness DIV(share,share)/MOD(share,
// share) consume when the divisor is secret: an invertible random mask
// share and its inverse (reused from the INV-RAN construction).
type DivisorTuple struct{ R, RInv shamir.Share }
