package simulator

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nilmpc/mpcnode/internal/field"
	"github.com/nilmpc/mpcnode/internal/party"
	"github.com/nilmpc/mpcnode/internal/protocol"
	"github.com/nilmpc/mpcnode/internal/runtime"
	"github.com/nilmpc/mpcnode/internal/shamir"
)

// testPrime is a small safe prime (p = 2q+1, q = 2^32-5 prime), matching
// the one internal/field's own test suite uses.
func testPrime() *big.Int {
	q := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 32), big.NewInt(5))
	return new(big.Int).Add(new(big.Int).Lsh(q, 1), big.NewInt(1))
}

func testCluster(t *testing.T, n, threshold int) *party.Cluster {
	t.Helper()
	parties := make([]party.Party, n)
	for i := range parties {
		parties[i] = party.Party{ID: party.ID(string(rune('a' + i)))}
	}
	cluster, err := party.New(parties, parties[0].ID, threshold)
	require.NoError(t, err)
	return cluster
}

func reconstructAll(t *testing.T, f *field.Field, cluster *party.Cluster, shares map[party.ID]shamir.Share) field.Element {
	t.Helper()
	v, err := shamir.Reconstruct(f, cluster, shares)
	require.NoError(t, err)
	return v
}

func TestPreprocessingGeneratorMultiplicationTriple(t *testing.T) {
	f, err := field.New(testPrime())
	require.NoError(t, err)
	cluster := testCluster(t, 4, 1)
	pool := runtime.NewPool()
	stores := map[party.ID]*runtime.ElementStore{}
	for _, p := range cluster.Parties() {
		stores[p.ID] = runtime.NewElementStore()
	}
	gen := &PreprocessingGenerator{Field: f, Cluster: cluster, Pool: pool, Stores: stores, Bitwidth: 32, ModulusPlaceholder: 1 << 16}

	require.NoError(t, gen.Generate(protocol.MultiplicationTriple, 3))

	consumed, generated := pool.Status(protocol.MultiplicationTriple)
	require.Zero(t, consumed)
	require.EqualValues(t, 3, generated)

	for i := uint64(0); i < 3; i++ {
		ashares := map[party.ID]shamir.Share{}
		bshares := map[party.ID]shamir.Share{}
		cshares := map[party.ID]shamir.Share{}
		for _, p := range cluster.Parties() {
			elems, err := stores[p.ID].Get(protocol.MultiplicationTriple, i, 1)
			require.NoError(t, err)
			tr := elems[0].(runtime.Triple)
			ashares[p.ID] = tr.A
			bshares[p.ID] = tr.B
			cshares[p.ID] = tr.C
		}
		a := reconstructAll(t, f, cluster, ashares)
		b := reconstructAll(t, f, cluster, bshares)
		c := reconstructAll(t, f, cluster, cshares)
		require.True(t, f.Equal(f.Mul(a, b), c), "triple %d: a*b != c", i)
	}
}

func TestPreprocessingGeneratorRandomInteger(t *testing.T) {
	f, err := field.New(testPrime())
	require.NoError(t, err)
	cluster := testCluster(t, 3, 1)
	pool := runtime.NewPool()
	stores := map[party.ID]*runtime.ElementStore{}
	for _, p := range cluster.Parties() {
		stores[p.ID] = runtime.NewElementStore()
	}
	gen := &PreprocessingGenerator{Field: f, Cluster: cluster, Pool: pool, Stores: stores, Bitwidth: 32, ModulusPlaceholder: 1 << 16}

	require.NoError(t, gen.Generate(protocol.RandomInteger, 5))

	_, generated := pool.Status(protocol.RandomInteger)
	require.EqualValues(t, 5, generated)

	for _, p := range cluster.Parties() {
		elems, err := stores[p.ID].Get(protocol.RandomInteger, 0, 5)
		require.NoError(t, err)
		require.Len(t, elems, 5)
		for _, e := range elems {
			_, ok := e.(shamir.Share)
			require.True(t, ok)
		}
	}
}

func TestPreprocessingGeneratorDivisorTuple(t *testing.T) {
	f, err := field.New(testPrime())
	require.NoError(t, err)
	cluster := testCluster(t, 4, 1)
	pool := runtime.NewPool()
	stores := map[party.ID]*runtime.ElementStore{}
	for _, p := range cluster.Parties() {
		stores[p.ID] = runtime.NewElementStore()
	}
	gen := &PreprocessingGenerator{Field: f, Cluster: cluster, Pool: pool, Stores: stores, Bitwidth: 32, ModulusPlaceholder: 1 << 16}

	require.NoError(t, gen.Generate(protocol.DivisionSecretDivisor, 1))

	rshares := map[party.ID]shamir.Share{}
	rinvshares := map[party.ID]shamir.Share{}
	for _, p := range cluster.Parties() {
		elems, err := stores[p.ID].Get(protocol.DivisionSecretDivisor, 0, 1)
		require.NoError(t, err)
		dt := elems[0].(runtime.DivisorTuple)
		rshares[p.ID] = dt.R
		rinvshares[p.ID] = dt.RInv
	}
	r := reconstructAll(t, f, cluster, rshares)
	rinv := reconstructAll(t, f, cluster, rinvshares)
	require.True(t, f.Equal(f.Mul(r, rinv), f.One()))
}
