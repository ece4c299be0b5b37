package mir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func samplProgram() *Program {
	return &Program{
		Parties: []Party{{Name: "party-a"}, {Name: "party-b"}},
		Inputs: []Input{
			{Name: "my_int1", Type: Type{Kind: SecretInteger}, Party: "party-a"},
			{Name: "my_int2", Type: Type{Kind: SecretInteger}, Party: "party-b"},
		},
		Literals: []Literal{
			{Name: "two", Type: Type{Kind: Integer}, Value: "2"},
		},
		Operations: []Operation{
			{ID: 0, Kind: OpAdd, Operands: []Operand{
				{Kind: OperandInput, Name: "my_int1"},
				{Kind: OperandInput, Name: "my_int2"},
			}, ResultType: Type{Kind: SecretInteger}},
			{ID: 1, Kind: OpReveal, Operands: []Operand{
				{Kind: OperandOperation, ID: 0},
			}, ResultType: Type{Kind: Integer}},
		},
		Outputs: []Output{
			{Name: "my_output", Source: 1, Type: Type{Kind: Integer}},
		},
	}
}

func TestWireRoundTrip(t *testing.T) {
	prog := samplProgram()
	decoded, err := Decode(Encode(prog))
	require.NoError(t, err)
	require.Equal(t, prog, decoded)
}

func TestWireRoundTripCompoundType(t *testing.T) {
	arr := Type{Kind: Array, Size: 3, Inner: &Type{Kind: SecretInteger}}
	prog := &Program{
		Inputs: []Input{{Name: "xs", Type: arr, Party: "party-a"}},
		Outputs: []Output{{Name: "xs_out", Source: 0, Type: arr}},
		Operations: []Operation{
			{ID: 0, Kind: OpAdd, Operands: []Operand{
				{Kind: OperandInput, Name: "xs"},
				{Kind: OperandInput, Name: "xs"},
			}, ResultType: arr},
		},
	}
	decoded, err := Decode(Encode(prog))
	require.NoError(t, err)
	require.Equal(t, prog, decoded)
}

func TestDecodeRejectsUnknownVersion(t *testing.T) {
	b := appendVarint(nil, 99)
	_, err := Decode(b)
	require.Error(t, err)
}

func TestDecodeRejectsTruncated(t *testing.T) {
	full := Encode(samplProgram())
	_, err := Decode(full[:len(full)-3])
	require.Error(t, err)
}
