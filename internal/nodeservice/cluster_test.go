package nodeservice

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nilmpc/mpcnode/internal/field"
	"github.com/nilmpc/mpcnode/internal/mir"
	"github.com/nilmpc/mpcnode/internal/mpclog"
	"github.com/nilmpc/mpcnode/internal/party"
	"github.com/nilmpc/mpcnode/internal/protocol"
	"github.com/nilmpc/mpcnode/internal/shamir"
)

func testField(t *testing.T) *field.Field {
	t.Helper()
	q := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 32), big.NewInt(5))
	p := new(big.Int).Add(new(big.Int).Mul(big.NewInt(2), q), big.NewInt(1))
	f, err := field.New(p)
	require.NoError(t, err)
	return f
}

func testCluster(t *testing.T) (*party.Cluster, []party.ID) {
	t.Helper()
	ids := []party.ID{"party-a", "party-b", "party-c"}
	parties := make([]party.Party, len(ids))
	for i, id := range ids {
		parties[i] = party.Party{ID: id}
	}
	c, err := party.New(parties, "party-a", 1)
	require.NoError(t, err)
	return c, ids
}

// storeScalar splits v into a ShareSet keyed by each party's string id, the
// shape nodeservice.StoreValues expects for one named secret input.
func storeScalar(t *testing.T, f *field.Field, cluster *party.Cluster, v int64) ShareSet {
	t.Helper()
	shares, err := shamir.Split(f, cluster, f.FromInt64(v))
	require.NoError(t, err)
	set := make(ShareSet, len(shares))
	for id, s := range shares {
		set[string(id)] = f.Bytes(s.Value)
	}
	return set
}

func additionProgram() *mir.Program {
	return &mir.Program{
		Parties: []mir.Party{{Name: "party-a"}, {Name: "party-b"}, {Name: "party-c"}},
		Inputs: []mir.Input{
			{Name: "my_int1", Type: mir.Type{Kind: mir.SecretInteger}, Party: "party-a"},
			{Name: "my_int2", Type: mir.Type{Kind: mir.SecretInteger}, Party: "party-b"},
		},
		Operations: []mir.Operation{
			{
				ID:   0,
				Kind: mir.OpAdd,
				Operands: []mir.Operand{
					{Kind: mir.OperandInput, Name: "my_int1"},
					{Kind: mir.OperandInput, Name: "my_int2"},
				},
				ResultType: mir.Type{Kind: mir.SecretInteger},
			},
			{
				ID:   1,
				Kind: mir.OpReveal,
				Operands: []mir.Operand{
					{Kind: mir.OperandOperation, ID: 0},
				},
				ResultType: mir.Type{Kind: mir.Integer},
			},
		},
		Outputs: []mir.Output{
			{Name: "my_output", Source: 1, Type: mir.Type{Kind: mir.Integer}},
		},
	}
}

func TestClusterAdditionSimple(t *testing.T) {
	f := testField(t)
	cluster, _ := testCluster(t)
	log := mpclog.New(mpclog.Config{})
	cl := NewCluster(f, cluster, log)

	require.NoError(t, cl.RegisterProgram("addition_simple", additionProgram()))

	ctx := context.Background()
	require.NoError(t, cl.StoreValues(ctx, "v1", map[string]ShareSet{"my_int1": storeScalar(t, f, cluster, 4)}, Permissions{Owner: "alice"}, Receipt{}))
	require.NoError(t, cl.StoreValues(ctx, "v2", map[string]ShareSet{"my_int2": storeScalar(t, f, cluster, 5)}, Permissions{Owner: "alice"}, Receipt{}))

	computeID, err := cl.InvokeCompute(ctx, InvokeComputeRequest{
		ProgramID:   "addition_simple",
		InputValues: map[string]string{"my_int1": "v1", "my_int2": "v2"},
		Receipt:     Receipt{ID: "r1"},
	})
	require.NoError(t, err)

	results, err := cl.RetrieveComputeResults(ctx, computeID)
	require.NoError(t, err)
	out, ok := results["my_output"].(field.Element)
	require.True(t, ok, "expected a public field.Element output, got %T", results["my_output"])
	require.Equal(t, big.NewInt(9), out.BigInt())
}

func TestClusterRetrieveValuesChecksPermissions(t *testing.T) {
	f := testField(t)
	cluster, _ := testCluster(t)
	cl := NewCluster(f, cluster, mpclog.New(mpclog.Config{}))
	ctx := context.Background()

	require.NoError(t, cl.StoreValues(ctx, "v1", map[string]ShareSet{"my_int1": storeScalar(t, f, cluster, 4)}, Permissions{Owner: "alice", Readers: []string{"bob"}}, Receipt{}))

	_, err := cl.RetrieveValues(ctx, "v1", "bob")
	require.NoError(t, err)

	_, err = cl.RetrieveValues(ctx, "v1", "mallory")
	require.Error(t, err)
}

func TestClusterPoolStatusReportsEveryKind(t *testing.T) {
	f := testField(t)
	cluster, _ := testCluster(t)
	cl := NewCluster(f, cluster, mpclog.New(mpclog.Config{}))

	require.NoError(t, cl.GeneratePreprocessing(protocol.MultiplicationTriple, 4))
	entries, auxAvailable, err := cl.PoolStatus(context.Background())
	require.NoError(t, err)
	require.True(t, auxAvailable)
	require.Len(t, entries, 10)
}
