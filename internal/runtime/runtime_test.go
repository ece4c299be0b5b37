package runtime

import (
	"errors"
	"testing"

	"github.com/nilmpc/mpcnode/internal/bytecode"
	"github.com/nilmpc/mpcnode/internal/protocol"
	"github.com/stretchr/testify/require"
)

func TestMemorySetGetRoundTrip(t *testing.T) {
	m := NewMemory(2, 1, 3)
	require.NoError(t, m.SetInput(0, "in0"))
	require.NoError(t, m.SetLiteral(0, "lit0"))

	heapAddr := bytecode.Address{Index: 0, Type: bytecode.Heap}
	require.False(t, m.IsWritten(heapAddr))
	require.NoError(t, m.Set(heapAddr, "heap0"))
	require.True(t, m.IsWritten(heapAddr))

	v, err := m.Get(heapAddr)
	require.NoError(t, err)
	require.Equal(t, "heap0", v)

	in, err := m.Get(bytecode.Address{Index: 0, Type: bytecode.Input})
	require.NoError(t, err)
	require.Equal(t, "in0", in)
}

func TestMemoryRejectsDoubleWrite(t *testing.T) {
	m := NewMemory(0, 0, 1)
	addr := bytecode.Address{Index: 0, Type: bytecode.Heap}
	require.NoError(t, m.Set(addr, 1))
	err := m.Set(addr, 2)
	require.ErrorIs(t, err, ErrAlreadyWritten)
}

func TestMemoryRejectsUnwrittenRead(t *testing.T) {
	m := NewMemory(0, 0, 1)
	_, err := m.Get(bytecode.Address{Index: 0, Type: bytecode.Heap})
	require.ErrorIs(t, err, ErrUnwrittenAddress)
}

func TestPoolReserveHandsOutDisjointRanges(t *testing.T) {
	p := NewPool()
	p.Generate(protocol.MultiplicationTriple, 10)

	r1, err := p.Reserve(protocol.MultiplicationTriple, 4)
	require.NoError(t, err)
	require.Equal(t, uint64(0), r1.Start)
	require.Equal(t, uint64(4), r1.Count)

	r2, err := p.Reserve(protocol.MultiplicationTriple, 4)
	require.NoError(t, err)
	require.Equal(t, uint64(4), r2.Start)

	consumed, generated := p.Status(protocol.MultiplicationTriple)
	require.Equal(t, uint64(8), consumed)
	require.Equal(t, uint64(10), generated)
}

func TestPoolReserveFailsOnExhaustion(t *testing.T) {
	p := NewPool()
	p.Generate(protocol.Compare, 1)
	_, err := p.Reserve(protocol.Compare, 2)
	var exhausted *ErrPoolExhausted
	require.True(t, errors.As(err, &exhausted))
	require.Equal(t, protocol.Compare, exhausted.Kind)
}

func TestPoolReserveAllIsAllOrNothing(t *testing.T) {
	p := NewPool()
	p.Generate(protocol.MultiplicationTriple, 5)
	// Compare has no generated material at all.
	reqs := protocol.Requirements{}
	reqs.Add(protocol.MultiplicationTriple, 3)
	reqs.Add(protocol.Compare, 1)

	_, err := p.ReserveAll(reqs, []protocol.PreprocessingKind{protocol.MultiplicationTriple, protocol.Compare})
	require.Error(t, err)

	// Nothing should have been consumed from MultiplicationTriple despite
	// it having succeeded in isolation.
	consumed, _ := p.Status(protocol.MultiplicationTriple)
	require.Equal(t, uint64(0), consumed)
}

func TestAuxMaterialReadyAfterAllPartiesPublish(t *testing.T) {
	a := NewAuxMaterial()
	require.False(t, a.Ready())
	a.Publish("party-0", []byte("blob0"), 2)
	require.False(t, a.Ready())
	a.Publish("party-1", []byte("blob1"), 2)
	require.True(t, a.Ready())

	blob, err := a.Get("party-0")
	require.NoError(t, err)
	require.Equal(t, []byte("blob0"), blob)
}

func TestAuxMaterialNotReadyBeforePublish(t *testing.T) {
	a := NewAuxMaterial()
	_, err := a.Get("party-0")
	require.ErrorIs(t, err, ErrAuxMaterialNotReady)
}
