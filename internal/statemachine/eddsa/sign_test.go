package eddsa

import (
	"crypto/sha512"
	"testing"

	"filippo.io/edwards25519"
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

// drive runs every machine to Done, routing broadcasts (empty To) and
// targeted OutboundMessages through a FIFO queue (see
// internal/statemachine/ecdsa's identical helper).
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

	seed := sha512.Sum512([]byte("eddsa sign test key"))
	priv, err := edwards25519.NewScalar().SetUniformBytes(seed[:])
	require.NoError(t, err)
	privElem := elementFromScalar(f, priv)
	keyShares, err := shamir.Split(f, cluster, privElem)
	require.NoError(t, err)

	publicKey := scalarBaseMult(priv)
	msg := []byte("message to sign")

	machines := make(map[party.ID]statemachine.Machine, cluster.N())
	for _, p := range cluster.Parties() {
		machines[p.ID] = NewSign(f, cluster, p.ID, keyShares[p.ID], publicKey, msg)
	}

	results := drive(t, machines)

	for id, out := range results {
		sig := out.(Signature)
		require.True(t, Verify(publicKey, msg, sig), "party %s produced a signature that failed verification", id)
	}
}
