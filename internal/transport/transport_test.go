package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nilmpc/mpcnode/internal/codec"
	"github.com/nilmpc/mpcnode/internal/party"
)

func TestInMemoryNetworkSendReceive(t *testing.T) {
	ids := []party.ID{"a", "b"}
	net := NewInMemoryNetwork(ids, 8)
	a, b := net.For("a"), net.For("b")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	env := codec.Envelope{ComputationID: "c1", From: "a", Round: 0, Tag: 1, Body: []byte("payload")}
	require.NoError(t, a.Send(ctx, "b", env))

	got, err := b.Receive(ctx)
	require.NoError(t, err)
	require.Equal(t, env, got)
}

func TestInMemoryNetworkSendToUnknownPeer(t *testing.T) {
	net := NewInMemoryNetwork([]party.ID{"a"}, 1)
	a := net.For("a")
	ctx := context.Background()
	err := a.Send(ctx, "ghost", codec.Envelope{})
	require.Error(t, err)
}

func TestInMemoryNetworkCloseRejectsReceive(t *testing.T) {
	net := NewInMemoryNetwork([]party.ID{"a"}, 1)
	a := net.For("a")
	require.NoError(t, a.Close())

	_, err := a.Receive(context.Background())
	require.Error(t, err)
}

func TestInMemoryNetworkSendRespectsCancellation(t *testing.T) {
	net := NewInMemoryNetwork([]party.ID{"a", "b"}, 1)
	a := net.For("a")

	// Fill b's single-slot inbox so the next send would block.
	require.NoError(t, a.Send(context.Background(), "b", codec.Envelope{}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := a.Send(ctx, "b", codec.Envelope{})
	require.ErrorIs(t, err, context.Canceled)
}
