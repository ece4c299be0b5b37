// Package executor implements the round driver that walks a frozen plan
// step by step, dispatching each step's protocols, routing peer messages to
// the right sub-protocol instance, and publishing outputs once the plan's
// terminal step completes (spec §4.3 "Executor & round driver").
package executor

import (
	"errors"
	"fmt"
	"sync"

	"github.com/nilmpc/mpcnode/internal/bytecode"
	"github.com/nilmpc/mpcnode/internal/field"
	"github.com/nilmpc/mpcnode/internal/party"
	"github.com/nilmpc/mpcnode/internal/plan"
	"github.com/nilmpc/mpcnode/internal/protocol"
	"github.com/nilmpc/mpcnode/internal/runtime"
	"github.com/nilmpc/mpcnode/internal/statemachine"
)

// Status is a computation's coarse lifecycle position, distinct from
// statemachine.Status since a computation spans many machines across many
// steps (spec §4.3's own Running/Done/Failed vocabulary).
type Status int

const (
	Running Status = iota
	Done
	Failed
)

func (s Status) String() string {
	switch s {
	case Running:
		return "Running"
	case Done:
		return "Done"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// FailureReason names why a computation transitioned to Failed (spec §7's
// four error classes, narrowed to the ones the round driver itself raises;
// client errors are rejected before a Computation is even constructed).
type FailureReason struct {
	Code string // "PreprocessingExhausted", "Aborted", "Timeout", "Cancelled", "Internal"
	Err  error
}

func (f *FailureReason) Error() string { return fmt.Sprintf("%s: %v", f.Code, f.Err) }

var allPreprocessingKinds = []protocol.PreprocessingKind{
	protocol.Compare, protocol.DivisionSecretDivisor, protocol.Modulo,
	protocol.EqualityPublicOutput, protocol.TruncPr, protocol.Trunc,
	protocol.EqualitySecretOutput, protocol.RandomInteger, protocol.RandomBoolean,
	protocol.MultiplicationTriple,
}

// OutboundEnvelope is one message this computation needs transmitted to a
// peer (or broadcast, when To is empty), addressed by the protocol node
// that produced it so the receiving node's executor can route the matching
// inbound message back to the same machine instance.
type OutboundEnvelope struct {
	To       party.ID
	Address  protocol.Address
	Message  statemachine.OutboundMessage
}

// InboundEnvelope is one already-demultiplexed peer message: the transport
// layer has resolved which computation and which protocol address it
// belongs to (spec §4.3 "Drive": "matched to (computation_id,
// protocol_address, round)").
type InboundEnvelope struct {
	From    party.ID
	Address protocol.Address
	Message statemachine.PeerMessage
}

// Computation owns one program instance's runtime memory and plan cursor
// (spec §4.3's opening sentence, verbatim). Every exported method that
// mutates state is safe to call from a single driving goroutine; nothing
// here is itself concurrency-safe across simultaneous callers beyond what
// Memory and Pool already guarantee internally.
type Computation struct {
	ID      string
	Field   *field.Field
	Cluster *party.Cluster
	Self    party.ID

	plan    *plan.Plan
	outputs []bytecode.OutputSlot
	memory  *runtime.Memory
	pool    *runtime.Pool
	store   *runtime.ElementStore

	// EcdsaPublicKey/EddsaPublicKey are the cluster's standing signing keys,
	// established once at DKG time and read-only thereafter (spec §5
	// "Auxiliary material: written once at cluster bring-up; read-only
	// thereafter") — a computation that signs reads these rather than
	// re-deriving them from a per-program operand.
	EcdsaPublicKey interface{}
	EddsaPublicKey interface{}

	mu           sync.Mutex
	cursor       int
	status       Status
	failure      *FailureReason
	reservations []runtime.Reservation
	prepCursor   map[protocol.PreprocessingKind]uint64
	active       map[protocol.Address]statemachine.Machine
}

// New constructs a Computation over a frozen plan. It does not reserve
// preprocessing or dispatch anything yet; call Reserve then Start.
func New(id string, f *field.Field, cluster *party.Cluster, self party.ID, p *plan.Plan, outputs []bytecode.OutputSlot, pool *runtime.Pool, store *runtime.ElementStore, numInputs, numLiterals, numHeap int) *Computation {
	return &Computation{
		ID:      id,
		Field:   f,
		Cluster: cluster,
		Self:    self,
		plan:    p,
		outputs: outputs,
		memory:  runtime.NewMemory(numInputs, numLiterals, numHeap),
		pool:    pool,
		store:   store,
		status:  Running,
		active:  map[protocol.Address]statemachine.Machine{},
	}
}

func (c *Computation) Memory() *runtime.Memory { return c.memory }
func (c *Computation) Status() Status          { return c.status }
func (c *Computation) Failure() *FailureReason { return c.failure }

// Reserve performs spec §4.3 step 1: atomically reserves every
// preprocessing range the plan declares before any message is sent. On
// exhaustion the computation fails immediately with no peer contacted.
func (c *Computation) Reserve() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	reservations, err := c.pool.ReserveAll(c.plan.Requirements, allPreprocessingKinds)
	if err != nil {
		c.status = Failed
		c.failure = &FailureReason{Code: "PreprocessingExhausted", Err: err}
		return err
	}
	c.reservations = reservations
	c.prepCursor = make(map[protocol.PreprocessingKind]uint64, len(reservations))
	for _, r := range reservations {
		c.prepCursor[r.Kind] = r.Start
	}
	return nil
}

// Start performs spec §4.3 step 2 for the plan's first step.
func (c *Computation) Start() ([]OutboundEnvelope, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dispatchStepLocked(0)
}

// dispatchStepLocked instantiates every protocol in plan.Steps[idx],
// running LOCAL machines to completion synchronously and registering
// ONLINE/Preprocessing ones as active, awaiting peer messages (spec §4.3
// step 2). If a step (or chain of all-LOCAL steps) completes with nothing
// left active, it recurses into the next step or finalises.
func (c *Computation) dispatchStepLocked(idx int) ([]OutboundEnvelope, error) {
	if idx >= len(c.plan.Steps) {
		return nil, c.finaliseLocked()
	}
	c.cursor = idx
	step := c.plan.Steps[idx]

	var out []OutboundEnvelope
	for _, n := range step.Nodes {
		machine, err := c.buildMachine(n)
		if err != nil {
			return nil, c.abortLocked(n.Dest, err)
		}
		msgs, err := machine.Start()
		if err != nil {
			return nil, c.abortLocked(n.Dest, err)
		}
		out = append(out, c.envelopes(n.Dest, msgs)...)

		switch machine.Status() {
		case statemachine.Done:
			if err := c.writeOutput(n.Dest, machine); err != nil {
				return nil, c.abortLocked(n.Dest, err)
			}
		case statemachine.Aborted:
			return nil, c.abortLocked(n.Dest, fmt.Errorf("executor: protocol at %s aborted during Start", n.Dest))
		default:
			c.active[n.Dest] = machine
		}
	}

	if len(c.active) == 0 {
		more, err := c.dispatchStepLocked(idx + 1)
		return append(out, more...), err
	}
	return out, nil
}

// Deliver performs spec §4.3 step 3: feeds one already-demultiplexed peer
// message to the machine it targets. Messages for an address with no
// active machine (already finished, or the computation raced ahead of the
// sender — no cross-step buffering is implemented, a documented
// limitation) are silently dropped rather than erroring, matching the
// "duplicate messages ... discarded" tolerance spec §4.2 rule 4 already
// grants within one machine.
func (c *Computation) Deliver(env InboundEnvelope) ([]OutboundEnvelope, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != Running {
		return nil, nil
	}
	machine, ok := c.active[env.Address]
	if !ok {
		return nil, nil
	}
	msgs, err := machine.Deliver(env.Message)
	if err != nil {
		return nil, c.abortLocked(env.Address, err)
	}
	out := c.envelopes(env.Address, msgs)

	switch machine.Status() {
	case statemachine.Done:
		if err := c.writeOutput(env.Address, machine); err != nil {
			return nil, c.abortLocked(env.Address, err)
		}
		delete(c.active, env.Address)
	case statemachine.Aborted:
		return nil, c.abortLocked(env.Address, fmt.Errorf("executor: protocol at %s aborted", env.Address))
	}

	if len(c.active) == 0 {
		more, err := c.dispatchStepLocked(c.cursor + 1)
		return append(out, more...), err
	}
	return out, nil
}

func (c *Computation) writeOutput(addr protocol.Address, machine statemachine.Machine) error {
	v, err := machine.Output()
	if err != nil {
		return err
	}
	return c.memory.Set(addr, v)
}

func (c *Computation) envelopes(addr protocol.Address, msgs []statemachine.OutboundMessage) []OutboundEnvelope {
	out := make([]OutboundEnvelope, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, OutboundEnvelope{To: m.To, Address: addr, Message: m})
	}
	return out
}

// abortLocked transitions the whole computation to Failed (spec §4.3 step
// 4: "when any state machine aborts the computation transitions to Failed
// and no further messages are sent"); it clears every other active machine
// rather than letting them keep running to a now-pointless completion.
func (c *Computation) abortLocked(addr protocol.Address, err error) error {
	c.status = Failed
	c.failure = &FailureReason{Code: "Aborted", Err: fmt.Errorf("at %s: %w", addr, err)}
	c.active = map[protocol.Address]statemachine.Machine{}
	return c.failure
}

// Cancel implements spec §4.3 "Cancellation": drops every pending machine,
// refunds nothing (already-reserved elements stay consumed), and publishes
// Failed{Cancelled}.
func (c *Computation) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != Running {
		return
	}
	c.status = Failed
	c.failure = &FailureReason{Code: "Cancelled", Err: errors.New("executor: computation cancelled")}
	c.active = map[protocol.Address]statemachine.Machine{}
}

// finaliseLocked performs spec §4.3 step 5: once the cursor reaches the
// terminal step, it marks the computation Done. Reading every output's
// source address into the flat name->value map is Outputs' job
// (output-party grouping is the collaborator boundary's — see
// internal/nodeservice).
func (c *Computation) finaliseLocked() error {
	c.status = Done
	return nil
}

// Outputs reads every declared output once the computation is Done.
func (c *Computation) Outputs() (map[string]runtime.Value, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != Done {
		return nil, fmt.Errorf("executor: outputs requested before computation %s reached Done", c.ID)
	}
	out := make(map[string]runtime.Value, len(c.outputs))
	for _, slot := range c.outputs {
		v, err := c.memory.Get(slot.Source)
		if err != nil {
			return nil, fmt.Errorf("executor: reading output %q: %w", slot.Name, err)
		}
		out[slot.Name] = v
	}
	return out, nil
}

// nextElements draws count materialised elements of kind starting from
// this computation's own running cursor within its reservation, advancing
// the cursor so a later node in the same computation draws the next slice.
func (c *Computation) nextElements(kind protocol.PreprocessingKind, count int) ([]interface{}, error) {
	start, ok := c.prepCursor[kind]
	if !ok {
		return nil, fmt.Errorf("executor: no reservation held for %s", kind)
	}
	elems, err := c.store.Get(kind, start, uint64(count))
	if err != nil {
		return nil, err
	}
	c.prepCursor[kind] = start + uint64(count)
	return elems, nil
}

func (c *Computation) peerIDs() []party.ID {
	parties := c.Cluster.Parties()
	ids := make([]party.ID, len(parties))
	for i, p := range parties {
		ids[i] = p.ID
	}
	return ids
}
