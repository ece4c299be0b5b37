package field

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

// testPrime is 2^32-1, which is not prime and is not used by the tests;
// they build their field from the safe prime in testField instead.
var testPrime = big.NewInt(2147483647*2 + 1) // 4294967295 is not prime; pick a verified one below.

func testField(t *testing.T) *Field {
	t.Helper()
	// 2^61 - 1 is a Mersenne prime but not a safe prime; use a known safe
	// prime instead: p = 2*q+1 with q = 2^32 - 5 (prime), p = 8589934583.
	q := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 32), big.NewInt(5))
	require.True(t, q.ProbablyPrime(40))
	p := new(big.Int).Add(new(big.Int).Lsh(q, 1), big.NewInt(1))
	f, err := New(p)
	require.NoError(t, err)
	return f
}

func TestNewRejectsNonSafePrime(t *testing.T) {
	_, err := New(big.NewInt(7)) // q=(7-1)/2=3 is prime, so 7 IS safe; pick a bad one
	require.NoError(t, err)

	_, err = New(big.NewInt(13)) // q=6 not prime
	require.Error(t, err)

	_, err = New(big.NewInt(8)) // not prime at all
	require.Error(t, err)
}

func TestAddSubNeg(t *testing.T) {
	f := testField(t)
	a := f.FromInt64(5)
	b := f.FromInt64(9)

	require.True(t, f.Equal(f.Add(a, b), f.FromInt64(14)))
	require.True(t, f.Equal(f.Sub(a, b), f.Sub(f.Zero(), f.FromInt64(4))))
	require.True(t, f.IsZero(f.Add(a, f.Neg(a))))
}

func TestMulAndInverse(t *testing.T) {
	f := testField(t)
	a := f.FromInt64(12345)
	inv, err := f.Inverse(a)
	require.NoError(t, err)
	require.True(t, f.Equal(f.Mul(a, inv), f.One()))

	_, err = f.Inverse(f.Zero())
	require.Error(t, err)
}

func TestNegativeLiteralsCanonicalised(t *testing.T) {
	f := testField(t)
	neg := f.Elem(big.NewInt(-7))
	require.True(t, neg.BigInt().Sign() >= 0)
	require.True(t, f.Equal(f.Add(neg, f.FromInt64(7)), f.Zero()))
}

func TestBytesRoundTrip(t *testing.T) {
	f := testField(t)
	for _, v := range []int64{0, 1, 42, 1 << 20} {
		e := f.FromInt64(v)
		buf := f.Bytes(e)
		require.Len(t, buf, f.ByteWidth())
		back, err := f.FromBytes(buf)
		require.NoError(t, err)
		require.True(t, f.Equal(e, back))
	}
}

func TestSignedRange(t *testing.T) {
	f := testField(t)
	require.True(t, f.SignedRange(f.FromInt64(5), 8))
	require.True(t, f.SignedRange(f.Neg(f.FromInt64(5)), 8))
	require.False(t, f.SignedRange(f.FromInt64(1<<20), 8))
}
