package statemachine_test

import (
	"math/big"
	"testing"

	"github.com/montanaflynn/stats"
	"github.com/stretchr/testify/require"

	"github.com/nilmpc/mpcnode/internal/executor/simulator"
	"github.com/nilmpc/mpcnode/internal/field"
	"github.com/nilmpc/mpcnode/internal/party"
	"github.com/nilmpc/mpcnode/internal/runtime"
	"github.com/nilmpc/mpcnode/internal/shamir"
	"github.com/nilmpc/mpcnode/internal/statemachine"
)

func testPrime(t *testing.T) *big.Int {
	t.Helper()
	q := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 32), big.NewInt(5))
	return new(big.Int).Add(new(big.Int).Lsh(q, 1), big.NewInt(1))
}

func testCluster(t *testing.T) *party.Cluster {
	t.Helper()
	parties := make([]party.Party, 4)
	for i := range parties {
		parties[i] = party.Party{ID: party.ID(string(rune('a' + i)))}
	}
	c, err := party.New(parties, parties[0].ID, 1)
	require.NoError(t, err)
	return c
}

func generateTruncTuples(t *testing.T, f *field.Field, cluster *party.Cluster, m int) map[party.ID]runtime.TruncTuple {
	t.Helper()
	machines := make(map[party.ID]statemachine.Machine, cluster.N())
	for _, p := range cluster.Parties() {
		machines[p.ID] = statemachine.NewPrepTruncTuple(f, cluster, p.ID, m)
	}
	out, err := simulator.DriveMachines(cluster, machines)
	require.NoError(t, err)
	tuples := make(map[party.ID]runtime.TruncTuple, len(out))
	for id, v := range out {
		tuples[id] = v.(runtime.TruncTuple)
	}
	return tuples
}

func runTruncPr(t *testing.T, f *field.Field, cluster *party.Cluster, secret int64, m int) int64 {
	t.Helper()
	shares, err := shamir.Split(f, cluster, f.FromInt64(secret))
	require.NoError(t, err)
	tuples := generateTruncTuples(t, f, cluster, m)

	machines := make(map[party.ID]statemachine.Machine, cluster.N())
	for _, p := range cluster.Parties() {
		machines[p.ID] = statemachine.NewTruncPr(f, cluster, p.ID, shares[p.ID], tuples[p.ID])
	}
	out, err := simulator.DriveMachines(cluster, machines)
	require.NoError(t, err)

	resultShares := make(map[party.ID]shamir.Share, len(out))
	for id, v := range out {
		resultShares[id] = v.(shamir.Share)
	}
	elem, err := shamir.Reconstruct(f, cluster, resultShares)
	require.NoError(t, err)
	return elem.BigInt().Int64()
}

// TestTruncPrScenario is spec §8's trunc_pr scenario: my_int1 = 20,
// amount = 1, expected result in {10, 9} (TRUNCPR's own off-by-one
// tolerance, not a bug in a single run).
func TestTruncPrScenario(t *testing.T) {
	f, err := field.New(testPrime(t))
	require.NoError(t, err)
	cluster := testCluster(t)

	result := runTruncPr(t, f, cluster, 20, 1)
	require.Contains(t, []int64{9, 10}, result)
}

// TestTruncPrMeanErrorBounded exercises spec §7's protocol-level property
// directly: "the mean error lies in [0, 1]" over many runs, rather than
// just accepting either single-run outcome.
func TestTruncPrMeanErrorBounded(t *testing.T) {
	f, err := field.New(testPrime(t))
	require.NoError(t, err)
	cluster := testCluster(t)

	const trials = 40
	const secret = 20
	const shift = 1
	exact := int64(secret >> shift)

	errors := make([]float64, trials)
	for i := 0; i < trials; i++ {
		result := runTruncPr(t, f, cluster, secret, shift)
		errors[i] = float64(exact - result)
	}

	mean, err := stats.Mean(errors)
	require.NoError(t, err)
	require.GreaterOrEqual(t, mean, 0.0)
	require.LessOrEqual(t, mean, 1.0)
}
