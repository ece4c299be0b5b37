package shamir

import (
	"math/big"
	"testing"

	"github.com/nilmpc/mpcnode/internal/field"
	"github.com/nilmpc/mpcnode/internal/party"
	"github.com/stretchr/testify/require"
)

func testField(t *testing.T) *field.Field {
	t.Helper()
	q := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 32), big.NewInt(5))
	p := new(big.Int).Add(new(big.Int).Lsh(q, 1), big.NewInt(1))
	f, err := field.New(p)
	require.NoError(t, err)
	return f
}

func testCluster(t *testing.T) *party.Cluster {
	t.Helper()
	parties := []party.Party{{ID: "p1"}, {ID: "p2"}, {ID: "p3"}, {ID: "p4"}, {ID: "p5"}}
	c, err := party.New(parties, "p1", 2)
	require.NoError(t, err)
	return c
}

func TestRoundTrip(t *testing.T) {
	f := testField(t)
	c := testCluster(t)

	for _, v := range []int64{0, 1, 42, -7, 1 << 20} {
		secret := f.FromInt64(v)
		shares, err := Split(f, c, secret)
		require.NoError(t, err)
		require.Len(t, shares, 5)

		got, err := Reconstruct(f, c, shares)
		require.NoError(t, err)
		require.True(t, f.Equal(got, secret))
	}
}

func TestReconstructRequiresThresholdPlusOne(t *testing.T) {
	f := testField(t)
	c := testCluster(t)
	shares, err := Split(f, c, f.FromInt64(99))
	require.NoError(t, err)

	short := map[party.ID]Share{"p1": shares["p1"], "p2": shares["p2"]}
	_, err = Reconstruct(f, c, short)
	require.Error(t, err)

	ok := map[party.ID]Share{"p1": shares["p1"], "p2": shares["p2"], "p3": shares["p3"]}
	got, err := Reconstruct(f, c, ok)
	require.NoError(t, err)
	require.True(t, f.Equal(got, f.FromInt64(99)))
}

func TestHomomorphism(t *testing.T) {
	f := testField(t)
	c := testCluster(t)

	a, b := f.FromInt64(7), f.FromInt64(13)
	alpha, beta := f.FromInt64(3), f.FromInt64(5)

	sharesA, err := Split(f, c, a)
	require.NoError(t, err)
	sharesB, err := Split(f, c, b)
	require.NoError(t, err)

	combined := make(map[party.ID]Share, len(sharesA))
	for id := range sharesA {
		combined[id] = LinearCombination(f, alpha, sharesA[id], beta, sharesB[id])
	}

	got, err := Reconstruct(f, c, combined)
	require.NoError(t, err)
	want := f.Add(f.Mul(alpha, a), f.Mul(beta, b))
	require.True(t, f.Equal(got, want))
}

func TestGaoDecodeToleratesCorruptedShares(t *testing.T) {
	f := testField(t)
	c := testCluster(t)
	secret := f.FromInt64(314159)

	shares, err := Split(f, c, secret)
	require.NoError(t, err)

	points := make([]Point, 0, 5)
	for _, p := range c.Parties() {
		x, err := c.AbscissaElem(f, p.ID)
		require.NoError(t, err)
		points = append(points, Point{X: x, Y: shares[p.ID].Value})
	}

	// n=5, t=2 => maxCorruptions = floor((5-2-1)/2) = 1.
	require.Equal(t, 1, c.MaxCorruptions())
	corrupted := make([]Point, len(points))
	copy(corrupted, points)
	corrupted[0].Y = f.FromInt64(corrupted[0].Y.BigInt().Int64() + 1)

	got, err := ReconstructRobust(f, corrupted, c.Threshold())
	require.NoError(t, err)
	require.True(t, f.Equal(got, secret))
}

func TestGaoDecodeFailsBeyondBound(t *testing.T) {
	f := testField(t)
	c := testCluster(t)
	secret := f.FromInt64(7)

	shares, err := Split(f, c, secret)
	require.NoError(t, err)

	points := make([]Point, 0, 5)
	for _, p := range c.Parties() {
		x, err := c.AbscissaElem(f, p.ID)
		require.NoError(t, err)
		points = append(points, Point{X: x, Y: shares[p.ID].Value})
	}
	// Corrupt two shares: beyond the maxCorruptions=1 bound for n=5,t=2.
	points[0].Y = f.FromInt64(points[0].Y.BigInt().Int64() + 1)
	points[1].Y = f.FromInt64(points[1].Y.BigInt().Int64() + 1)

	_, err = ReconstructRobust(f, points, c.Threshold())
	require.Error(t, err)
}
