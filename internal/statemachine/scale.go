package statemachine

import (
	"fmt"

	"github.com/nilmpc/mpcnode/internal/field"
	"github.com/nilmpc/mpcnode/internal/party"
	"github.com/nilmpc/mpcnode/internal/runtime"
	"github.com/nilmpc/mpcnode/internal/shamir"
)

// NewLessThanZero tests whether a secret a is negative under the field's
// balanced (signed) representation — values above P/2 stand for negative
// integers — by reusing Compare against the public constant zero (spec's
// LESS-THAN-ZERO). Zero is lifted to a pseudo-share the same way
// NewBitAdderMixed lifts public bits.
func NewLessThanZero(f *field.Field, cluster *party.Cluster, self party.ID, a shamir.Share, tuple runtime.CompareTuple) Machine {
	zero := shamir.Share{Value: f.Zero()}
	return NewCompare(f, cluster, self, a, zero, tuple)
}

// NewQuaternaryLessThan compares two base-4 digit strings (spec's
// QUATERNARY-LESS-THAN, the radix-4 counterpart of BIT-LESS-THAN meant to
// halve the round count by processing two bits per step). This
// implementation expands each quaternary digit back into its two
// constituent bits and defers to NewBitLessThan — correct, but it spends
// BIT-LESS-THAN's full per-bit round count rather than the radix-4
// protocol's per-digit savings; see DESIGN.md.
func NewQuaternaryLessThan(f *field.Field, cluster *party.Cluster, self party.ID, publicDigits []field.Element, secretDigits []shamir.Share, secretDigitBits [][2]shamir.Share, triples []runtime.Triple) Machine {
	if len(publicDigits) != len(secretDigits) || len(secretDigits) != len(secretDigitBits) {
		return newLocal(nil, fmt.Errorf("statemachine: QuaternaryLessThan requires matching digit vectors"))
	}
	publicBits := make([]field.Element, 0, 2*len(publicDigits))
	secretBits := make([]shamir.Share, 0, 2*len(secretDigits))
	for i, d := range publicDigits {
		v := d.BigInt().Int64()
		publicBits = append(publicBits, f.FromInt64((v>>1)&1), f.FromInt64(v&1))
		secretBits = append(secretBits, secretDigitBits[i][0], secretDigitBits[i][1])
	}
	return NewBitLessThan(f, cluster, self, publicBits, secretBits, triples)
}

// NewScale multiplies a secret value by a public power-of-two exponent
// (spec's SCALE, used to align fixed-point values before an addition or
// comparison). A public shift is linear over a Shamir sharing, so this is
// LOCAL. The harder variant — scaling by a secret exponent, which would
// need a one-hot exponent decoding folded via NewPostfixOr — has no
// SPEC_FULL.md caller and is not implemented, the same restriction
// NewBitDecompose documents for its own harder direction.
func NewScale(f *field.Field, value shamir.Share, exponent int) Machine {
	return newLocal(shamir.Share{Value: f.Mul(value.Value, pow2(f, exponent))}, nil)
}
