package ring

import (
	"math/big"
	"testing"

	"github.com/nilmpc/mpcnode/internal/field"
	"github.com/stretchr/testify/require"
)

func testRing(t *testing.T) *Ring {
	t.Helper()
	// q = 2^32 - 5 is prime and its companion p = 2q+1 is also prime.
	q := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 32), big.NewInt(5))
	r, err := New(q)
	require.NoError(t, err)
	return r
}

func TestTupleAddSubNeg(t *testing.T) {
	r := testRing(t)
	f := field.NewUnsafeModulus(r.Q())
	a := NewTuple(f.FromInt64(42), NewGF256(12))
	b := NewTuple(f.FromInt64(100), NewGF256(155))

	sum := r.Add(a, b)
	require.True(t, f.Equal(sum.M, f.FromInt64(142)))
	require.Equal(t, byte(12^155), sum.B.Value())

	back := r.Sub(sum, b)
	require.True(t, f.Equal(back.M, a.M))
	require.Equal(t, a.B.Value(), back.B.Value())

	require.True(t, f.IsZero(r.Add(a, r.Neg(a)).M))
}

func TestGF256MulKnownValues(t *testing.T) {
	// 0x53 * 0xCA = 0x01 in GF(2^8) with the AES reducing polynomial
	// (a standard test vector for Rijndael's finite field).
	a := NewGF256(0x53)
	b := NewGF256(0xCA)
	require.Equal(t, byte(0x01), a.Mul(b).Value())
}

func TestCRTRoundTrip(t *testing.T) {
	r := testRing(t)
	f := field.NewUnsafeModulus(r.Q())

	for _, m := range []int64{0, 1, 2, 1000, 1<<20 + 1} {
		for _, bit := range []byte{0, 1} {
			elem := f.FromInt64(m)
			tup := NewTuple(elem, NewGF256(bit))
			x := r.CRT(tup)

			twoQ := new(big.Int).Lsh(r.Q(), 1)
			require.Equal(t, -1, x.Cmp(twoQ))
			require.Equal(t, 0, new(big.Int).Mod(x, r.Q()).Cmp(elem.BigInt()))
			require.Equal(t, bit, byte(new(big.Int).Mod(x, big.NewInt(2)).Int64()))
		}
	}
}
