// Package simulator drives a whole cluster of in-process parties against
// the same set of state machines or computations, without any real
// transport — the harness used both to materialise preprocessing pool
// elements ahead of time and to run the scenario tests spec §8 describes
// (a single process standing in for n parties exchanging messages).
package simulator

import (
	"fmt"

	"github.com/nilmpc/mpcnode/internal/executor"
	"github.com/nilmpc/mpcnode/internal/field"
	"github.com/nilmpc/mpcnode/internal/party"
	"github.com/nilmpc/mpcnode/internal/protocol"
	"github.com/nilmpc/mpcnode/internal/runtime"
	"github.com/nilmpc/mpcnode/internal/shamir"
	"github.com/nilmpc/mpcnode/internal/statemachine"
)

// envelope is one in-flight message, queued for delivery to its addressee.
type envelope struct {
	to  party.ID
	msg statemachine.PeerMessage
}

// fanOut turns one party's outbound batch into per-addressee envelopes,
// replicating broadcasts (To == "") to every other party in the cluster.
func fanOut(peers []party.Party, from party.ID, msgs []statemachine.OutboundMessage, push func(envelope)) {
	for _, m := range msgs {
		pm := statemachine.PeerMessage{From: from, Round: m.Round, Tag: m.Tag, Body: m.Body}
		if m.To == "" {
			for _, p := range peers {
				if p.ID == from {
					continue
				}
				push(envelope{to: p.ID, msg: pm})
			}
			continue
		}
		push(envelope{to: m.To, msg: pm})
	}
}

// DriveMachines runs one instance of the same protocol across every party
// in machines to completion, resolving broadcast messages (To == "") into
// one copy per peer. It returns each party's Output() once every machine
// is Done, or the first abort/delivery error encountered.
//
// This is deliberately synchronous and single-threaded: spec §4.3 only
// requires that messages within a step tolerate arriving out of order, not
// that parties run concurrently, and a single goroutine draining a FIFO
// queue is the simplest thing that exercises that tolerance (the queue is
// drained in arrival order, not per-party priority order).
func DriveMachines(cluster *party.Cluster, machines map[party.ID]statemachine.Machine) (map[party.ID]interface{}, error) {
	var queue []envelope
	peers := cluster.Parties()
	push := func(e envelope) { queue = append(queue, e) }

	for id, m := range machines {
		msgs, err := m.Start()
		if err != nil {
			return nil, fmt.Errorf("simulator: party %s failed to start: %w", id, err)
		}
		if m.Status() == statemachine.Aborted {
			_, abortErr := m.Output()
			return nil, fmt.Errorf("simulator: party %s aborted on start: %w", id, abortErr)
		}
		fanOut(peers, id, msgs, push)
	}

	for len(queue) > 0 {
		env := queue[0]
		queue = queue[1:]
		m, ok := machines[env.to]
		if !ok {
			return nil, fmt.Errorf("simulator: message addressed to unknown party %s", env.to)
		}
		if m.Status() != statemachine.Running {
			continue
		}
		msgs, err := m.Deliver(env.msg)
		if err != nil {
			return nil, fmt.Errorf("simulator: party %s failed delivery: %w", env.to, err)
		}
		if m.Status() == statemachine.Aborted {
			_, abortErr := m.Output()
			return nil, fmt.Errorf("simulator: party %s aborted: %w", env.to, abortErr)
		}
		fanOut(peers, env.to, msgs, push)
	}

	out := make(map[party.ID]interface{}, len(machines))
	for id, m := range machines {
		if m.Status() != statemachine.Done {
			return nil, fmt.Errorf("simulator: party %s did not reach Done (status %s)", id, m.Status())
		}
		v, err := m.Output()
		if err != nil {
			return nil, err
		}
		out[id] = v
	}
	return out, nil
}

// PreprocessingGenerator materialises preprocessing elements for every
// party at once: for each requested (kind, count), it runs the matching
// PREP-* protocol across the whole cluster via DriveMachines, appends each
// party's resulting element(s) to that party's ElementStore, and advances
// the shared Pool's generated counter to match (spec §3 "generated" is
// cluster-visible metadata; §5's materialised values are per-party).
//
// Bitwidth sizes every bitwidth-sensitive pool kind (Compare,
// EqualitySecretOutput, TruncPr/Trunc). ModulusPlaceholder sizes Modulo's
// mask even though consumers overwrite the tuple's declared modulus before
// use (executor.buildMod replaces the drawn tuple's M field with the
// node's actual public modulus), so the placeholder only needs to be wide
// enough for the mask's statistical-hiding margin.
type PreprocessingGenerator struct {
	Field              *field.Field
	Cluster            *party.Cluster
	Pool               *runtime.Pool
	Stores             map[party.ID]*runtime.ElementStore
	Bitwidth           int
	ModulusPlaceholder int
}

// Generate materialises count elements of kind across every party.
func (g *PreprocessingGenerator) Generate(kind protocol.PreprocessingKind, count int) error {
	if count <= 0 {
		return nil
	}
	if kind == protocol.RandomInteger {
		return g.generateRandomBatch(count)
	}
	for i := 0; i < count; i++ {
		machines := make(map[party.ID]statemachine.Machine, len(g.Stores))
		for id := range g.Stores {
			m, err := g.single(kind, id)
			if err != nil {
				return err
			}
			machines[id] = m
		}
		out, err := DriveMachines(g.Cluster, machines)
		if err != nil {
			return fmt.Errorf("simulator: generating %s element %d/%d: %w", kind, i+1, count, err)
		}
		for id, v := range out {
			g.Stores[id].Append(kind, v)
		}
	}
	g.Pool.Generate(kind, count)
	return nil
}

// generateRandomBatch handles RandomInteger specially: NewPrepRandomBatch
// samples count elements in a single round-trip rather than one at a time,
// matching how the plain RAN protocol the pool backs is actually used (a
// computation typically draws many RANDOM elements at once).
func (g *PreprocessingGenerator) generateRandomBatch(count int) error {
	machines := make(map[party.ID]statemachine.Machine, len(g.Stores))
	for id := range g.Stores {
		machines[id] = statemachine.NewPrepRandomBatch(g.Field, g.Cluster, id, count)
	}
	out, err := DriveMachines(g.Cluster, machines)
	if err != nil {
		return fmt.Errorf("simulator: generating %d RandomInteger elements: %w", count, err)
	}
	for id, v := range out {
		shares := v.([]shamir.Share)
		elems := make([]interface{}, len(shares))
		for i, s := range shares {
			elems[i] = s
		}
		g.Stores[id].Append(protocol.RandomInteger, elems...)
	}
	g.Pool.Generate(protocol.RandomInteger, count)
	return nil
}

func (g *PreprocessingGenerator) single(kind protocol.PreprocessingKind, self party.ID) (statemachine.Machine, error) {
	switch kind {
	case protocol.RandomBoolean:
		return statemachine.NewPrepRanBit(g.Field, g.Cluster, self), nil
	case protocol.MultiplicationTriple:
		return statemachine.NewPrepTriple(g.Field, g.Cluster, self), nil
	case protocol.Compare, protocol.EqualitySecretOutput:
		return statemachine.NewPrepCompareTuple(g.Field, g.Cluster, self, g.Bitwidth), nil
	case protocol.EqualityPublicOutput:
		return statemachine.NewPrepEqualityTuple(g.Field, g.Cluster, self), nil
	case protocol.TruncPr, protocol.Trunc:
		return statemachine.NewPrepTruncTuple(g.Field, g.Cluster, self, g.Bitwidth), nil
	case protocol.Modulo:
		return statemachine.NewPrepModulusTuple(g.Field, g.Cluster, self, g.ModulusPlaceholder), nil
	case protocol.DivisionSecretDivisor:
		return statemachine.NewPrepDivisorTuple(g.Field, g.Cluster, self), nil
	default:
		return nil, fmt.Errorf("simulator: no preprocessing generator wired for %s", kind)
	}
}

// pending is one in-flight computation message, queued for delivery.
type pending struct {
	to  party.ID
	env executor.InboundEnvelope
}

// RunComputation drives every party's already-constructed Computation to
// completion: it reserves each one's preprocessing, starts them, and then
// exchanges messages the same way DriveMachines does but at the coarser
// Computation granularity (one computation can have many concurrently
// active machines across its own steps). Returns each party's declared
// outputs once every computation reaches Done.
func RunComputation(cluster *party.Cluster, comps map[party.ID]*executor.Computation) (map[party.ID]map[string]runtime.Value, error) {
	peers := cluster.Parties()
	var queue []pending

	fanOutComputation := func(from party.ID, envs []executor.OutboundEnvelope) {
		for _, e := range envs {
			msg := statemachine.PeerMessage{From: from, Round: e.Message.Round, Tag: e.Message.Tag, Body: e.Message.Body}
			if e.To == "" {
				for _, p := range peers {
					if p.ID == from {
						continue
					}
					queue = append(queue, pending{to: p.ID, env: executor.InboundEnvelope{From: from, Address: e.Address, Message: msg}})
				}
				continue
			}
			queue = append(queue, pending{to: e.To, env: executor.InboundEnvelope{From: from, Address: e.Address, Message: msg}})
		}
	}

	for id, c := range comps {
		if err := c.Reserve(); err != nil {
			return nil, fmt.Errorf("simulator: party %s failed to reserve preprocessing: %w", id, err)
		}
	}
	for id, c := range comps {
		envs, err := c.Start()
		if err != nil {
			return nil, fmt.Errorf("simulator: party %s failed to start computation %s: %w", id, c.ID, err)
		}
		fanOutComputation(id, envs)
	}

	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		c, ok := comps[p.to]
		if !ok {
			return nil, fmt.Errorf("simulator: message addressed to unknown party %s", p.to)
		}
		if c.Status() != executor.Running {
			continue
		}
		envs, err := c.Deliver(p.env)
		if err != nil {
			return nil, fmt.Errorf("simulator: party %s computation %s failed: %w", p.to, c.ID, err)
		}
		fanOutComputation(p.to, envs)
	}

	out := make(map[party.ID]map[string]runtime.Value, len(comps))
	for id, c := range comps {
		if c.Status() != executor.Done {
			return nil, fmt.Errorf("simulator: party %s computation %s ended in status %s (%v)", id, c.ID, c.Status(), c.Failure())
		}
		o, err := c.Outputs()
		if err != nil {
			return nil, err
		}
		out[id] = o
	}
	return out, nil
}
