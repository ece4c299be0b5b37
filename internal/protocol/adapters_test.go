package protocol

import (
	"testing"

	"github.com/nilmpc/mpcnode/internal/bytecode"
	"github.com/nilmpc/mpcnode/internal/mir"
	"github.com/stretchr/testify/require"
)

var (
	secretInt = mir.Type{Kind: mir.SecretInteger}
	publicInt = mir.Type{Kind: mir.Integer}
)

func heapOp(idx int, kind bytecode.OpKind, ty mir.Type) bytecode.Op {
	return bytecode.Op{Kind: kind, Dest: bytecode.Address{Index: idx, Type: bytecode.Heap}, Type: ty}
}

func TestMulPublicPublicIsLocal(t *testing.T) {
	bc := &bytecode.Program{
		Inputs: []bytecode.InputSlot{{Name: "a", Type: publicInt}, {Name: "b", Type: publicInt}},
	}
	bc.Ops = []bytecode.Op{
		{Kind: bytecode.OpLoad, Dest: bytecode.Address{Index: 0, Type: bytecode.Heap}, Operand: bytecode.Address{Index: 0, Type: bytecode.Input}, Type: publicInt},
		{Kind: bytecode.OpLoad, Dest: bytecode.Address{Index: 1, Type: bytecode.Heap}, Operand: bytecode.Address{Index: 1, Type: bytecode.Input}, Type: publicInt},
		{Kind: bytecode.OpMul, Dest: bytecode.Address{Index: 2, Type: bytecode.Heap}, Left: bytecode.Address{Index: 0, Type: bytecode.Heap}, Right: bytecode.Address{Index: 1, Type: bytecode.Heap}, Type: publicInt},
	}
	dag, err := Translate(bc)
	require.NoError(t, err)

	var mulNode *Node
	for i := range dag.Nodes {
		if dag.Nodes[i].Kind == KindMulPublicPublic {
			mulNode = &dag.Nodes[i]
		}
	}
	require.NotNil(t, mulNode)
	require.Equal(t, Local, mulNode.Line.Kind)
	require.Equal(t, 0, dag.Requirements.Count(MultiplicationTriple))
}

func TestMulShareShareConsumesTriple(t *testing.T) {
	bc := &bytecode.Program{
		Inputs: []bytecode.InputSlot{{Name: "a", Type: secretInt}, {Name: "b", Type: secretInt}},
	}
	bc.Ops = []bytecode.Op{
		{Kind: bytecode.OpLoad, Dest: bytecode.Address{Index: 0, Type: bytecode.Heap}, Operand: bytecode.Address{Index: 0, Type: bytecode.Input}, Type: secretInt},
		{Kind: bytecode.OpLoad, Dest: bytecode.Address{Index: 1, Type: bytecode.Heap}, Operand: bytecode.Address{Index: 1, Type: bytecode.Input}, Type: secretInt},
		{Kind: bytecode.OpMul, Dest: bytecode.Address{Index: 2, Type: bytecode.Heap}, Left: bytecode.Address{Index: 0, Type: bytecode.Heap}, Right: bytecode.Address{Index: 1, Type: bytecode.Heap}, Type: secretInt},
	}
	dag, err := Translate(bc)
	require.NoError(t, err)
	require.Equal(t, 1, dag.Requirements.Count(MultiplicationTriple))
}

func TestLessThanShareShareEmitsExactlyOneCompareNode(t *testing.T) {
	boolSecret := mir.Type{Kind: mir.SecretBoolean}
	bc := &bytecode.Program{
		Inputs: []bytecode.InputSlot{{Name: "a", Type: secretInt}, {Name: "b", Type: secretInt}},
	}
	bc.Ops = []bytecode.Op{
		{Kind: bytecode.OpLoad, Dest: bytecode.Address{Index: 0, Type: bytecode.Heap}, Operand: bytecode.Address{Index: 0, Type: bytecode.Input}, Type: secretInt},
		{Kind: bytecode.OpLoad, Dest: bytecode.Address{Index: 1, Type: bytecode.Heap}, Operand: bytecode.Address{Index: 1, Type: bytecode.Input}, Type: secretInt},
		{Kind: bytecode.OpLessThan, Dest: bytecode.Address{Index: 2, Type: bytecode.Heap}, Left: bytecode.Address{Index: 0, Type: bytecode.Heap}, Right: bytecode.Address{Index: 1, Type: bytecode.Heap}, Type: boolSecret},
	}
	dag, err := Translate(bc)
	require.NoError(t, err)

	compareCount := 0
	for _, n := range dag.Nodes {
		if n.Kind == KindCompare {
			compareCount++
		}
	}
	require.Equal(t, 1, compareCount)
	require.Equal(t, 1, dag.Requirements.Count(Compare))
}

func TestTupleAccessorRejectsNonTuple(t *testing.T) {
	bc := &bytecode.Program{Inputs: []bytecode.InputSlot{{Name: "a", Type: secretInt}}}
	bc.Ops = []bytecode.Op{
		{Kind: bytecode.OpLoad, Dest: bytecode.Address{Index: 0, Type: bytecode.Heap}, Operand: bytecode.Address{Index: 0, Type: bytecode.Input}, Type: secretInt},
		{Kind: bytecode.OpTupleAccessor, Dest: bytecode.Address{Index: 1, Type: bytecode.Heap}, Operand: bytecode.Address{Index: 0, Type: bytecode.Heap}, AccessorIndex: 0, Type: secretInt},
	}
	_, err := Translate(bc)
	require.Error(t, err)
}

func TestIfElseSecretCondExpandsToMulAddSub(t *testing.T) {
	bc := &bytecode.Program{
		Inputs: []bytecode.InputSlot{
			{Name: "c", Type: mir.Type{Kind: mir.SecretBoolean}},
			{Name: "a", Type: secretInt},
			{Name: "b", Type: secretInt},
		},
	}
	bc.Ops = []bytecode.Op{
		{Kind: bytecode.OpLoad, Dest: bytecode.Address{Index: 0, Type: bytecode.Heap}, Operand: bytecode.Address{Index: 0, Type: bytecode.Input}, Type: mir.Type{Kind: mir.SecretBoolean}},
		{Kind: bytecode.OpLoad, Dest: bytecode.Address{Index: 1, Type: bytecode.Heap}, Operand: bytecode.Address{Index: 1, Type: bytecode.Input}, Type: secretInt},
		{Kind: bytecode.OpLoad, Dest: bytecode.Address{Index: 2, Type: bytecode.Heap}, Operand: bytecode.Address{Index: 2, Type: bytecode.Input}, Type: secretInt},
		{Kind: bytecode.OpIfElse, Dest: bytecode.Address{Index: 3, Type: bytecode.Heap}, Operands: []bytecode.Address{
			{Index: 0, Type: bytecode.Heap}, {Index: 1, Type: bytecode.Heap}, {Index: 2, Type: bytecode.Heap},
		}, Type: secretInt},
	}
	dag, err := Translate(bc)
	require.NoError(t, err)

	require.Equal(t, 2, dag.Requirements.Count(MultiplicationTriple))
	var hasAdd, hasSub, hasConst bool
	for _, n := range dag.Nodes {
		switch n.Kind {
		case KindAdd:
			hasAdd = true
		case KindSub:
			hasSub = true
		case KindConstant:
			hasConst = true
		}
	}
	require.True(t, hasAdd && hasSub && hasConst)
}
