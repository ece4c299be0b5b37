package ecdsa

import (
	"crypto/sha256"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	dcrecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/stretchr/testify/require"

	"github.com/nilmpc/mpcnode/internal/party"
	"github.com/nilmpc/mpcnode/internal/shamir"
	"github.com/nilmpc/mpcnode/internal/statemachine"
)

func testCluster(t *testing.T, n, threshold int) *party.Cluster {
	t.Helper()
	parties := make([]party.Party, n)
	for i := range parties {
		parties[i] = party.Party{ID: party.ID(string(rune('a' + i)))}
	}
	c, err := party.New(parties, parties[0].ID, threshold)
	require.NoError(t, err)
	return c
}

// drive runs every machine in machines to Done/Aborted, routing broadcast
// (empty To) and targeted OutboundMessages through a FIFO queue — the same
// shape internal/executor/simulator.RunComputation uses, specialised to a
// single sub-protocol instance per party instead of a whole plan.
func drive(t *testing.T, machines map[party.ID]statemachine.Machine) map[party.ID]interface{} {
	t.Helper()
	type pending struct {
		to  party.ID
		msg statemachine.PeerMessage
	}
	var queue []pending

	fanOut := func(from party.ID, out []statemachine.OutboundMessage) {
		for _, m := range out {
			peer := statemachine.PeerMessage{From: from, Round: m.Round, Tag: m.Tag, Body: m.Body}
			if m.To == "" {
				for id := range machines {
					if id == from {
						continue
					}
					queue = append(queue, pending{to: id, msg: peer})
				}
				continue
			}
			queue = append(queue, pending{to: m.To, msg: peer})
		}
	}

	for id, m := range machines {
		out, err := m.Start()
		require.NoError(t, err)
		fanOut(id, out)
	}

	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		out, err := machines[next.to].Deliver(next.msg)
		require.NoError(t, err)
		fanOut(next.to, out)
	}

	results := make(map[party.ID]interface{}, len(machines))
	for id, m := range machines {
		require.Equal(t, statemachine.Done, m.Status(), "party %s did not finish", id)
		out, err := m.Output()
		require.NoError(t, err)
		results[id] = out
	}
	return results
}

func TestSignProducesVerifiableSignature(t *testing.T) {
	f := ScalarField()
	cluster := testCluster(t, 4, 1)

	var d secp256k1.ModNScalar
	d.SetInt(424242)
	privElem := elementFromScalar(f, &d)
	keyShares, err := shamir.Split(f, cluster, privElem)
	require.NoError(t, err)

	pub := scalarBaseMult(&d)

	digest := sha256.Sum256([]byte("sign this"))
	var hScalar secp256k1.ModNScalar
	hScalar.SetByteSlice(digest[:])
	msgHash := elementFromScalar(f, &hScalar)

	machines := make(map[party.ID]statemachine.Machine, cluster.N())
	for _, p := range cluster.Parties() {
		machines[p.ID] = NewSign(f, cluster, p.ID, keyShares[p.ID], msgHash)
	}

	results := drive(t, machines)

	pubKey := secp256k1.NewPublicKey(&pub.X, &pub.Y)
	for id, out := range results {
		sig := out.(Signature)
		r := scalarFromElement(f.Elem(sig.R))
		s := scalarFromElement(f.Elem(sig.S))
		signature := dcrecdsa.NewSignature(r, s)
		require.True(t, signature.Verify(digest[:], pubKey), "party %s produced a signature that failed verification", id)
	}
}
