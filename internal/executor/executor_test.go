package executor

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nilmpc/mpcnode/internal/bytecode"
	"github.com/nilmpc/mpcnode/internal/field"
	"github.com/nilmpc/mpcnode/internal/mir"
	"github.com/nilmpc/mpcnode/internal/party"
	"github.com/nilmpc/mpcnode/internal/plan"
	"github.com/nilmpc/mpcnode/internal/protocol"
	"github.com/nilmpc/mpcnode/internal/runtime"
)

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

// publicAddProgram adds two public literals and reveals the sum: every
// step is local, so a single party's Computation can Start and reach Done
// without ever needing Deliver.
func publicAddProgram() *mir.Program {
	return &mir.Program{
		Literals: []mir.Literal{
			{Name: "a", Type: mir.Type{Kind: mir.Integer}, Value: "2"},
			{Name: "b", Type: mir.Type{Kind: mir.Integer}, Value: "3"},
		},
		Operations: []mir.Operation{
			{
				ID:   1,
				Kind: mir.OpAdd,
				Operands: []mir.Operand{
					{Kind: mir.OperandLiteral, Name: "a"},
					{Kind: mir.OperandLiteral, Name: "b"},
				},
				ResultType: mir.Type{Kind: mir.Integer},
			},
		},
		Outputs: []mir.Output{{Name: "sum", Source: 1, Type: mir.Type{Kind: mir.Integer}}},
	}
}

func buildComputation(t *testing.T, cluster *party.Cluster, self party.ID) (*Computation, *runtime.Pool) {
	t.Helper()
	f, err := field.New(testPrime())
	require.NoError(t, err)

	normalized, err := mir.Normalize(publicAddProgram())
	require.NoError(t, err)
	bc, err := bytecode.Lower(f, normalized)
	require.NoError(t, err)
	dag, err := protocol.Translate(bc)
	require.NoError(t, err)
	p, err := plan.Build(dag, plan.Parallel)
	require.NoError(t, err)
	require.NoError(t, plan.Validate(p))

	pool := runtime.NewPool()
	store := runtime.NewElementStore()
	comp := New("compute-1", f, cluster, self, p, dag.Outputs, pool, store,
		len(bc.Inputs), len(bc.Literals), bc.OperationsCount())

	for i, lit := range bc.Literals {
		v, ok := new(big.Int).SetString(lit.Value, 10)
		require.True(t, ok)
		require.NoError(t, comp.Memory().SetLiteral(i, f.FromInt64(v.Int64())))
	}
	return comp, pool
}

func TestComputationLocalOnlyRunsToDone(t *testing.T) {
	cluster := testCluster(t, 1, 0)
	comp, _ := buildComputation(t, cluster, cluster.Parties()[0].ID)

	require.NoError(t, comp.Reserve())
	envelopes, err := comp.Start()
	require.NoError(t, err)
	require.Empty(t, envelopes, "a program with only local operations should produce no peer traffic")
	require.Equal(t, Done, comp.Status())

	outputs, err := comp.Outputs()
	require.NoError(t, err)
	sum := outputs["sum"].(field.Element)
	require.Equal(t, int64(5), sum.BigInt().Int64())
}

func TestComputationOutputsBeforeDoneFails(t *testing.T) {
	cluster := testCluster(t, 1, 0)
	comp, _ := buildComputation(t, cluster, cluster.Parties()[0].ID)

	_, err := comp.Outputs()
	require.Error(t, err)
}

func TestComputationCancelMarksFailed(t *testing.T) {
	cluster := testCluster(t, 1, 0)
	comp, _ := buildComputation(t, cluster, cluster.Parties()[0].ID)

	require.NoError(t, comp.Reserve())
	comp.Cancel()
	require.Equal(t, Failed, comp.Status())
	require.NotNil(t, comp.Failure())
	require.Equal(t, "Cancelled", comp.Failure().Code)
}

func TestComputationReserveFailsOnExhaustedPool(t *testing.T) {
	cluster := testCluster(t, 1, 0)
	_, pool := buildComputation(t, cluster, cluster.Parties()[0].ID)

	// A plan requiring multiplication triples this pool never generated
	// must fail Reserve with PreprocessingExhausted, not panic or silently
	// proceed (spec §4.3 "pool exhaustion fails the computation").
	reservations, err := pool.ReserveAll(requirementsOf(protocol.MultiplicationTriple, 1), allPreprocessingKinds)
	require.Error(t, err)
	require.Nil(t, reservations)
}

func requirementsOf(kind protocol.PreprocessingKind, n int) protocol.Requirements {
	var r protocol.Requirements
	r.Add(kind, n)
	return r
}
