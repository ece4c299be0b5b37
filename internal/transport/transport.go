// Package transport abstracts the point-to-point channel a node speaks to
// every other party over (spec §6: the real gRPC transport and
// authentication layer is an explicit Non-goal, modeled here only as a Go
// interface the executor's round driver sends through). InMemoryNetwork is
// the one concrete implementation this repo ships: it round-trips every
// message through internal/codec exactly as a real socket would, so tests
// exercise the wire format without a listener.
package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/nilmpc/mpcnode/internal/codec"
	"github.com/nilmpc/mpcnode/internal/party"
)

// Transport is one node's channel to the rest of the cluster.
type Transport interface {
	// Send delivers env to the named peer, blocking only as long as the
	// underlying channel is full; it returns ctx.Err() if ctx is cancelled
	// first (spec §7 class 2, "a peer timed out" — a caller-supplied
	// deadline is how that surfaces here).
	Send(ctx context.Context, to party.ID, env codec.Envelope) error
	// Receive returns the next frame addressed to this node, decoded from
	// the wire. It blocks until one arrives, ctx is cancelled, or the
	// transport is closed.
	Receive(ctx context.Context) (codec.Envelope, error)
	// Close releases this node's inbox. A Transport is not reusable after
	// Close; further Receive calls return any frames already queued and
	// then an error.
	Close() error
}

// InMemoryNetwork wires a fixed party set together with one buffered inbox
// channel per party. It exists purely for tests and the simulator-adjacent
// scenario harness (spec §4 "Simulator"): there is no real socket, but
// every Send still serialises through codec.EncodeEnvelope and every
// Receive decodes it back, so a bug in the wire format shows up here
// exactly as it would over a real connection.
type InMemoryNetwork struct {
	mu      sync.Mutex
	inboxes map[party.ID]chan []byte
	closed  map[party.ID]bool
}

// NewInMemoryNetwork allocates one inbox per id. bufSize bounds how many
// undelivered frames a peer may accumulate before Send blocks.
func NewInMemoryNetwork(ids []party.ID, bufSize int) *InMemoryNetwork {
	n := &InMemoryNetwork{
		inboxes: make(map[party.ID]chan []byte, len(ids)),
		closed:  make(map[party.ID]bool, len(ids)),
	}
	for _, id := range ids {
		n.inboxes[id] = make(chan []byte, bufSize)
	}
	return n
}

// For returns id's handle into the shared network.
func (n *InMemoryNetwork) For(id party.ID) Transport {
	return &inMemoryTransport{network: n, self: id}
}

type inMemoryTransport struct {
	network *InMemoryNetwork
	self    party.ID
}

func (t *inMemoryTransport) Send(ctx context.Context, to party.ID, env codec.Envelope) error {
	t.network.mu.Lock()
	inbox, ok := t.network.inboxes[to]
	closed := t.network.closed[to]
	t.network.mu.Unlock()
	if !ok {
		return fmt.Errorf("transport: unknown peer %s", to)
	}
	if closed {
		return fmt.Errorf("transport: peer %s is closed", to)
	}
	body := codec.EncodeEnvelope(env)
	select {
	case inbox <- body:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *inMemoryTransport) Receive(ctx context.Context) (codec.Envelope, error) {
	t.network.mu.Lock()
	inbox, ok := t.network.inboxes[t.self]
	t.network.mu.Unlock()
	if !ok {
		return codec.Envelope{}, fmt.Errorf("transport: unknown party %s", t.self)
	}
	select {
	case body, open := <-inbox:
		if !open {
			return codec.Envelope{}, fmt.Errorf("transport: %s is closed", t.self)
		}
		return codec.DecodeEnvelope(body)
	case <-ctx.Done():
		return codec.Envelope{}, ctx.Err()
	}
}

func (t *inMemoryTransport) Close() error {
	t.network.mu.Lock()
	defer t.network.mu.Unlock()
	if t.network.closed[t.self] {
		return nil
	}
	t.network.closed[t.self] = true
	close(t.network.inboxes[t.self])
	return nil
}
