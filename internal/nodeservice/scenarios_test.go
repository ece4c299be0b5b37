package nodeservice

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nilmpc/mpcnode/internal/field"
	"github.com/nilmpc/mpcnode/internal/mir"
	"github.com/nilmpc/mpcnode/internal/mpclog"
	"github.com/nilmpc/mpcnode/internal/protocol"
)

// The following mirror spec §8's concrete end-to-end scenarios, each built
// as a hand-constructed mir.Program the way additionProgram already is.

func multiplicationProgram() *mir.Program {
	return &mir.Program{
		Parties: []mir.Party{{Name: "party-a"}, {Name: "party-b"}},
		Inputs: []mir.Input{
			{Name: "my_int1", Type: mir.Type{Kind: mir.SecretInteger}, Party: "party-a"},
			{Name: "my_int2", Type: mir.Type{Kind: mir.SecretInteger}, Party: "party-b"},
		},
		Operations: []mir.Operation{
			{
				ID:   0,
				Kind: mir.OpMul,
				Operands: []mir.Operand{
					{Kind: mir.OperandInput, Name: "my_int1"},
					{Kind: mir.OperandInput, Name: "my_int2"},
				},
				ResultType: mir.Type{Kind: mir.SecretInteger},
			},
			{
				ID:         1,
				Kind:       mir.OpReveal,
				Operands:   []mir.Operand{{Kind: mir.OperandOperation, ID: 0}},
				ResultType: mir.Type{Kind: mir.Integer},
			},
		},
		Outputs: []mir.Output{{Name: "my_output", Source: 1, Type: mir.Type{Kind: mir.Integer}}},
	}
}

func TestClusterMultiplicationSimple(t *testing.T) {
	f := testField(t)
	cluster, _ := testCluster(t)
	cl := NewCluster(f, cluster, mpclog.New(mpclog.Config{}))
	require.NoError(t, cl.GeneratePreprocessing(protocol.MultiplicationTriple, 4))
	require.NoError(t, cl.RegisterProgram("multiplication_simple", multiplicationProgram()))

	ctx := context.Background()
	require.NoError(t, cl.StoreValues(ctx, "v1", map[string]ShareSet{"my_int1": storeScalar(t, f, cluster, 4)}, Permissions{Owner: "alice"}, Receipt{}))
	require.NoError(t, cl.StoreValues(ctx, "v2", map[string]ShareSet{"my_int2": storeScalar(t, f, cluster, 5)}, Permissions{Owner: "alice"}, Receipt{}))

	computeID, err := cl.InvokeCompute(ctx, InvokeComputeRequest{
		ProgramID:   "multiplication_simple",
		InputValues: map[string]string{"my_int1": "v1", "my_int2": "v2"},
		Receipt:     Receipt{ID: "r1"},
	})
	require.NoError(t, err)

	results, err := cl.RetrieveComputeResults(ctx, computeID)
	require.NoError(t, err)
	out := results["my_output"].(field.Element)
	require.Equal(t, big.NewInt(20), out.BigInt())
}

// lessThanProgram computes (a+b) < (c+d), spec §8's less_than scenario:
// A=1, B=2, C=3, D=3 -> 1+2=3 < 3+3=6 -> true.
func lessThanProgram() *mir.Program {
	return &mir.Program{
		Parties: []mir.Party{{Name: "party-a"}, {Name: "party-b"}},
		Inputs: []mir.Input{
			{Name: "A", Type: mir.Type{Kind: mir.SecretInteger}, Party: "party-a"},
			{Name: "B", Type: mir.Type{Kind: mir.SecretInteger}, Party: "party-a"},
			{Name: "C", Type: mir.Type{Kind: mir.SecretInteger}, Party: "party-b"},
			{Name: "D", Type: mir.Type{Kind: mir.SecretInteger}, Party: "party-b"},
		},
		Operations: []mir.Operation{
			{
				ID:   0,
				Kind: mir.OpAdd,
				Operands: []mir.Operand{
					{Kind: mir.OperandInput, Name: "A"},
					{Kind: mir.OperandInput, Name: "B"},
				},
				ResultType: mir.Type{Kind: mir.SecretInteger},
			},
			{
				ID:   1,
				Kind: mir.OpAdd,
				Operands: []mir.Operand{
					{Kind: mir.OperandInput, Name: "C"},
					{Kind: mir.OperandInput, Name: "D"},
				},
				ResultType: mir.Type{Kind: mir.SecretInteger},
			},
			{
				ID:   2,
				Kind: mir.OpLessThan,
				Operands: []mir.Operand{
					{Kind: mir.OperandOperation, ID: 0},
					{Kind: mir.OperandOperation, ID: 1},
				},
				ResultType: mir.Type{Kind: mir.SecretBoolean},
			},
			{
				ID:         3,
				Kind:       mir.OpReveal,
				Operands:   []mir.Operand{{Kind: mir.OperandOperation, ID: 2}},
				ResultType: mir.Type{Kind: mir.Boolean},
			},
		},
		Outputs: []mir.Output{{Name: "my_output", Source: 3, Type: mir.Type{Kind: mir.Boolean}}},
	}
}

func TestClusterLessThan(t *testing.T) {
	f := testField(t)
	cluster, _ := testCluster(t)
	cl := NewCluster(f, cluster, mpclog.New(mpclog.Config{}))
	require.NoError(t, cl.GeneratePreprocessing(protocol.Compare, 4))
	require.NoError(t, cl.RegisterProgram("less_than", lessThanProgram()))

	ctx := context.Background()
	require.NoError(t, cl.StoreValues(ctx, "a", map[string]ShareSet{"A": storeScalar(t, f, cluster, 1)}, Permissions{Owner: "alice"}, Receipt{}))
	require.NoError(t, cl.StoreValues(ctx, "b", map[string]ShareSet{"B": storeScalar(t, f, cluster, 2)}, Permissions{Owner: "alice"}, Receipt{}))
	require.NoError(t, cl.StoreValues(ctx, "c", map[string]ShareSet{"C": storeScalar(t, f, cluster, 3)}, Permissions{Owner: "alice"}, Receipt{}))
	require.NoError(t, cl.StoreValues(ctx, "d", map[string]ShareSet{"D": storeScalar(t, f, cluster, 3)}, Permissions{Owner: "alice"}, Receipt{}))

	computeID, err := cl.InvokeCompute(ctx, InvokeComputeRequest{
		ProgramID: "less_than",
		InputValues: map[string]string{
			"A": "a", "B": "b", "C": "c", "D": "d",
		},
		Receipt: Receipt{ID: "r1"},
	})
	require.NoError(t, err)

	results, err := cl.RetrieveComputeResults(ctx, computeID)
	require.NoError(t, err)
	out := results["my_output"].(field.Element)
	require.Equal(t, int64(1), out.BigInt().Int64(), "3 < 6 should reveal true")
}

// revealManyOperationsProgram mirrors the original implementation's
// "prod = x*y, sum = (x+y).to_public(), mod = (x%3).to_public(), tmp_1 =
// prod.to_public()/2, tmp_2 = sum+mod, output = tmp_1+tmp_2" shape
// (original_source/libs/execution-engine/mpc-vm/src/vm/tests/reveal.rs).
func revealManyOperationsProgram() *mir.Program {
	return &mir.Program{
		Parties: []mir.Party{{Name: "party-a"}, {Name: "party-b"}},
		Inputs: []mir.Input{
			{Name: "my_int1", Type: mir.Type{Kind: mir.SecretInteger}, Party: "party-a"},
			{Name: "my_int2", Type: mir.Type{Kind: mir.SecretInteger}, Party: "party-b"},
		},
		Literals: []mir.Literal{
			{Name: "three", Type: mir.Type{Kind: mir.Integer}, Value: "3"},
			{Name: "two", Type: mir.Type{Kind: mir.Integer}, Value: "2"},
		},
		Operations: []mir.Operation{
			{ // 0: prod = my_int1 * my_int2
				ID:   0,
				Kind: mir.OpMul,
				Operands: []mir.Operand{
					{Kind: mir.OperandInput, Name: "my_int1"},
					{Kind: mir.OperandInput, Name: "my_int2"},
				},
				ResultType: mir.Type{Kind: mir.SecretInteger},
			},
			{ // 1: sum = my_int1 + my_int2
				ID:   1,
				Kind: mir.OpAdd,
				Operands: []mir.Operand{
					{Kind: mir.OperandInput, Name: "my_int1"},
					{Kind: mir.OperandInput, Name: "my_int2"},
				},
				ResultType: mir.Type{Kind: mir.SecretInteger},
			},
			{ // 2: sum_pub = reveal(sum)
				ID:         2,
				Kind:       mir.OpReveal,
				Operands:   []mir.Operand{{Kind: mir.OperandOperation, ID: 1}},
				ResultType: mir.Type{Kind: mir.Integer},
			},
			{ // 3: mod = my_int1 % 3
				ID:   3,
				Kind: mir.OpMod,
				Operands: []mir.Operand{
					{Kind: mir.OperandInput, Name: "my_int1"},
					{Kind: mir.OperandLiteral, Name: "three"},
				},
				ResultType: mir.Type{Kind: mir.SecretInteger},
			},
			{ // 4: mod_pub = reveal(mod)
				ID:         4,
				Kind:       mir.OpReveal,
				Operands:   []mir.Operand{{Kind: mir.OperandOperation, ID: 3}},
				ResultType: mir.Type{Kind: mir.Integer},
			},
			{ // 5: prod_pub = reveal(prod)
				ID:         5,
				Kind:       mir.OpReveal,
				Operands:   []mir.Operand{{Kind: mir.OperandOperation, ID: 0}},
				ResultType: mir.Type{Kind: mir.Integer},
			},
			{ // 6: tmp_1 = prod_pub / 2
				ID:   6,
				Kind: mir.OpDiv,
				Operands: []mir.Operand{
					{Kind: mir.OperandOperation, ID: 5},
					{Kind: mir.OperandLiteral, Name: "two"},
				},
				ResultType: mir.Type{Kind: mir.Integer},
			},
			{ // 7: tmp_2 = sum_pub + mod_pub
				ID:   7,
				Kind: mir.OpAdd,
				Operands: []mir.Operand{
					{Kind: mir.OperandOperation, ID: 2},
					{Kind: mir.OperandOperation, ID: 4},
				},
				ResultType: mir.Type{Kind: mir.Integer},
			},
			{ // 8: output = tmp_1 + tmp_2
				ID:   8,
				Kind: mir.OpAdd,
				Operands: []mir.Operand{
					{Kind: mir.OperandOperation, ID: 6},
					{Kind: mir.OperandOperation, ID: 7},
				},
				ResultType: mir.Type{Kind: mir.Integer},
			},
		},
		Outputs: []mir.Output{{Name: "my_output", Source: 8, Type: mir.Type{Kind: mir.Integer}}},
	}
}

func TestClusterRevealManyOperations(t *testing.T) {
	cases := []struct {
		a, b, want int64
	}{
		{32, 81, 1411},
		{1, 2, 5},
		{10, 10, 71},
	}
	for _, tc := range cases {
		f := testField(t)
		cluster, _ := testCluster(t)
		cl := NewCluster(f, cluster, mpclog.New(mpclog.Config{}))
		require.NoError(t, cl.GeneratePreprocessing(protocol.MultiplicationTriple, 2))
		require.NoError(t, cl.GeneratePreprocessing(protocol.Modulo, 2))
		require.NoError(t, cl.RegisterProgram("reveal_many_operations", revealManyOperationsProgram()))

		ctx := context.Background()
		require.NoError(t, cl.StoreValues(ctx, "v1", map[string]ShareSet{"my_int1": storeScalar(t, f, cluster, tc.a)}, Permissions{Owner: "alice"}, Receipt{}))
		require.NoError(t, cl.StoreValues(ctx, "v2", map[string]ShareSet{"my_int2": storeScalar(t, f, cluster, tc.b)}, Permissions{Owner: "alice"}, Receipt{}))

		computeID, err := cl.InvokeCompute(ctx, InvokeComputeRequest{
			ProgramID:   "reveal_many_operations",
			InputValues: map[string]string{"my_int1": "v1", "my_int2": "v2"},
			Receipt:     Receipt{ID: "r1"},
		})
		require.NoError(t, err)

		results, err := cl.RetrieveComputeResults(ctx, computeID)
		require.NoError(t, err)
		out := results["my_output"].(field.Element)
		require.Equal(t, big.NewInt(tc.want), out.BigInt(), "a=%d b=%d", tc.a, tc.b)
	}
}
