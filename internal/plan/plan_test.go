package plan

import (
	"testing"

	"github.com/nilmpc/mpcnode/internal/bytecode"
	"github.com/nilmpc/mpcnode/internal/mir"
	"github.com/nilmpc/mpcnode/internal/protocol"
	"github.com/stretchr/testify/require"
)

func additionDAG(t *testing.T) *protocol.DAG {
	t.Helper()
	secretInt := mir.Type{Kind: mir.SecretInteger}
	bc := &bytecode.Program{
		Inputs: []bytecode.InputSlot{{Name: "a", Type: secretInt}, {Name: "b", Type: secretInt}},
		Ops: []bytecode.Op{
			{Kind: bytecode.OpLoad, Dest: bytecode.Address{Index: 0, Type: bytecode.Heap}, Operand: bytecode.Address{Index: 0, Type: bytecode.Input}, Type: secretInt},
			{Kind: bytecode.OpLoad, Dest: bytecode.Address{Index: 1, Type: bytecode.Heap}, Operand: bytecode.Address{Index: 1, Type: bytecode.Input}, Type: secretInt},
			{Kind: bytecode.OpAdd, Dest: bytecode.Address{Index: 2, Type: bytecode.Heap}, Left: bytecode.Address{Index: 0, Type: bytecode.Heap}, Right: bytecode.Address{Index: 1, Type: bytecode.Heap}, Type: secretInt},
		},
	}
	dag, err := protocol.Translate(bc)
	require.NoError(t, err)
	return dag
}

func TestBuildSequentialOneNodePerStep(t *testing.T) {
	dag := additionDAG(t)
	p, err := Build(dag, Sequential)
	require.NoError(t, err)
	require.Len(t, p.Steps, len(dag.Nodes))
	for _, s := range p.Steps {
		require.Len(t, s.Nodes, 1)
	}
	require.NoError(t, Validate(p))
}

func TestBuildParallelRespectsDependencyOrder(t *testing.T) {
	dag := additionDAG(t)
	p, err := Build(dag, Parallel)
	require.NoError(t, err)
	require.NoError(t, Validate(p))
}

func TestBuildParallelNeverMixesExecutionLines(t *testing.T) {
	secretInt := mir.Type{Kind: mir.SecretInteger}
	boolSecret := mir.Type{Kind: mir.SecretBoolean}
	bc := &bytecode.Program{
		Inputs: []bytecode.InputSlot{{Name: "a", Type: secretInt}, {Name: "b", Type: secretInt}},
		Ops: []bytecode.Op{
			{Kind: bytecode.OpLoad, Dest: bytecode.Address{Index: 0, Type: bytecode.Heap}, Operand: bytecode.Address{Index: 0, Type: bytecode.Input}, Type: secretInt},
			{Kind: bytecode.OpLoad, Dest: bytecode.Address{Index: 1, Type: bytecode.Heap}, Operand: bytecode.Address{Index: 1, Type: bytecode.Input}, Type: secretInt},
			// Two independent, same-depth nodes with different execution lines.
			{Kind: bytecode.OpAdd, Dest: bytecode.Address{Index: 2, Type: bytecode.Heap}, Left: bytecode.Address{Index: 0, Type: bytecode.Heap}, Right: bytecode.Address{Index: 1, Type: bytecode.Heap}, Type: secretInt},
			{Kind: bytecode.OpLessThan, Dest: bytecode.Address{Index: 3, Type: bytecode.Heap}, Left: bytecode.Address{Index: 0, Type: bytecode.Heap}, Right: bytecode.Address{Index: 1, Type: bytecode.Heap}, Type: boolSecret},
		},
	}
	dag, err := protocol.Translate(bc)
	require.NoError(t, err)

	p, err := Build(dag, Parallel)
	require.NoError(t, err)
	for _, step := range p.Steps {
		line := step.Nodes[0].Line
		for _, n := range step.Nodes[1:] {
			require.Equal(t, line.Kind, n.Line.Kind)
			if line.Kind == protocol.Preprocessing {
				require.Equal(t, line.PreprocessingKey, n.Line.PreprocessingKey)
			}
		}
	}
	require.NoError(t, Validate(p))
}
