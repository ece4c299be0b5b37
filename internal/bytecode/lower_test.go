package bytecode

import (
	"math/big"
	"testing"

	"github.com/nilmpc/mpcnode/internal/field"
	"github.com/nilmpc/mpcnode/internal/mir"
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

var secretInt = mir.Type{Kind: mir.SecretInteger}

func additionProgram() *mir.Program {
	return &mir.Program{
		Parties: []mir.Party{{Name: "alice"}, {Name: "bob"}},
		Inputs: []mir.Input{
			{Name: "my_int1", Type: secretInt, Party: "alice"},
			{Name: "my_int2", Type: secretInt, Party: "bob"},
		},
		Outputs: []mir.Output{{Name: "my_output", Source: 0, Type: secretInt, Party: "alice"}},
		Operations: []mir.Operation{
			{ID: 0, Kind: mir.OpAdd, ResultType: secretInt, Operands: []mir.Operand{
				{Kind: mir.OperandInput, Name: "my_int1"},
				{Kind: mir.OperandInput, Name: "my_int2"},
			}},
		},
	}
}

func TestLowerAdditionSimple(t *testing.T) {
	f := testField(t)
	prog := additionProgram()

	norm, err := mir.Normalize(prog)
	require.NoError(t, err)

	bc, err := Lower(f, norm)
	require.NoError(t, err)

	require.Len(t, bc.Inputs, 2)
	require.Len(t, bc.Outputs, 1)
	// Two Load ops materialising the inputs, then one Add op.
	require.Len(t, bc.Ops, 3)
	require.Equal(t, OpLoad, bc.Ops[0].Kind)
	require.Equal(t, OpLoad, bc.Ops[1].Kind)
	require.Equal(t, OpAdd, bc.Ops[2].Kind)
	require.Equal(t, bc.Ops[0].Dest, bc.Ops[2].Left)
	require.Equal(t, bc.Ops[1].Dest, bc.Ops[2].Right)
	require.Equal(t, bc.Ops[2].Dest, bc.Outputs[0].Source)
}

func TestLowerIsDeterministic(t *testing.T) {
	f := testField(t)
	norm, err := mir.Normalize(additionProgram())
	require.NoError(t, err)

	a, err := Lower(f, norm)
	require.NoError(t, err)
	b, err := Lower(f, norm)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestLowerCanonicalisesNegativeLiterals(t *testing.T) {
	f := testField(t)
	prog := &mir.Program{
		Inputs:   []mir.Input{{Name: "x", Type: secretInt, Party: "alice"}},
		Literals: []mir.Literal{{Name: "neg_one", Type: mir.Type{Kind: mir.Integer}, Value: "-1"}},
		Outputs:  []mir.Output{{Name: "out", Source: 0, Type: secretInt, Party: "alice"}},
		Operations: []mir.Operation{
			{ID: 0, Kind: mir.OpAdd, ResultType: secretInt, Operands: []mir.Operand{
				{Kind: mir.OperandInput, Name: "x"},
				{Kind: mir.OperandLiteral, Name: "neg_one"},
			}},
		},
	}
	norm, err := mir.Normalize(prog)
	require.NoError(t, err)
	bc, err := Lower(f, norm)
	require.NoError(t, err)

	require.Len(t, bc.Literals, 1)
	want := f.Elem(big.NewInt(-1)).BigInt().String()
	require.Equal(t, want, bc.Literals[0].Value)
	require.NotEqual(t, "-1", bc.Literals[0].Value)
}

func TestLowerRejectsUnknownOperationID(t *testing.T) {
	prog := &mir.Program{
		Inputs:  []mir.Input{{Name: "x", Type: secretInt, Party: "alice"}},
		Outputs: []mir.Output{{Name: "out", Source: 1, Type: secretInt, Party: "alice"}},
		Operations: []mir.Operation{
			{ID: 0, Kind: mir.OpNot, ResultType: secretInt, Operands: []mir.Operand{
				{Kind: mir.OperandInput, Name: "x"},
			}},
		},
	}
	_, err := mir.Normalize(prog)
	require.Error(t, err)
}

func TestLowerRejectsUnusedInput(t *testing.T) {
	prog := &mir.Program{
		Inputs: []mir.Input{
			{Name: "x", Type: secretInt, Party: "alice"},
			{Name: "unused", Type: secretInt, Party: "alice"},
		},
		Outputs: []mir.Output{{Name: "out", Source: 0, Type: secretInt, Party: "alice"}},
		Operations: []mir.Operation{
			{ID: 0, Kind: mir.OpNot, ResultType: secretInt, Operands: []mir.Operand{
				{Kind: mir.OperandInput, Name: "x"},
			}},
		},
	}
	_, err := mir.Normalize(prog)
	require.Error(t, err)
	var unused *mir.ErrUnusedInput
	require.ErrorAs(t, err, &unused)
}
