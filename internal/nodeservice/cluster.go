package nodeservice

import (
	"context"
	"fmt"
	"sync"

	"github.com/nilmpc/mpcnode/internal/bytecode"
	"github.com/nilmpc/mpcnode/internal/executor"
	"github.com/nilmpc/mpcnode/internal/executor/simulator"
	"github.com/nilmpc/mpcnode/internal/field"
	"github.com/nilmpc/mpcnode/internal/mir"
	"github.com/nilmpc/mpcnode/internal/mpclog"
	"github.com/nilmpc/mpcnode/internal/party"
	"github.com/nilmpc/mpcnode/internal/plan"
	"github.com/nilmpc/mpcnode/internal/protocol"
	"github.com/nilmpc/mpcnode/internal/rpcstatus"
	"github.com/nilmpc/mpcnode/internal/runtime"
	"github.com/nilmpc/mpcnode/internal/shamir"
)

// compiledProgram is the frozen JIT output for one registered program id,
// shared read-only across every invocation (spec §4.1's DAG is built once,
// not per computation).
type compiledProgram struct {
	bc   *bytecode.Program
	dag  *protocol.DAG
	plan *plan.Plan
}

type storedValue struct {
	shares map[string]ShareSet // stored id -> value name -> ShareSet
	perm   Permissions
}

type computeRecord struct {
	outputSlots []bytecode.OutputSlot
	outputs     map[party.ID]map[string]runtime.Value
	err         error
}

// Cluster is the in-memory, single-process reference implementation of
// Service (spec §5 Non-goals: "a Go interface + an in-memory reference
// implementation used by tests", "no real DB"). It co-locates every
// party's preprocessing pool and runtime state in one process, which a
// real deployment would instead split across nodeservice.Service
// instances wired together by internal/transport; the behaviour this type
// exercises — reservation, dispatch, round-driving, output publication —
// is identical either way, only the transport is simulated.
type Cluster struct {
	field   *field.Field
	cluster *party.Cluster
	log     *mpclog.Logger

	mu           sync.Mutex
	programs     map[string]*compiledProgram
	values       map[string]*storedValue
	pools        map[party.ID]*runtime.Pool
	stores       map[party.ID]*runtime.ElementStore
	computations map[string]*computeRecord
	nextComputeID uint64
}

// NewCluster wires a reference Service over an already-admitted cluster,
// with one preprocessing pool and element store per party (spec §3
// "Preprocessing pool": "owned per-party").
func NewCluster(f *field.Field, c *party.Cluster, log *mpclog.Logger) *Cluster {
	pools := make(map[party.ID]*runtime.Pool, c.N())
	stores := make(map[party.ID]*runtime.ElementStore, c.N())
	for _, p := range c.Parties() {
		pools[p.ID] = runtime.NewPool()
		stores[p.ID] = runtime.NewElementStore()
	}
	return &Cluster{
		field:        f,
		cluster:      c,
		log:          log,
		programs:     map[string]*compiledProgram{},
		values:       map[string]*storedValue{},
		pools:        pools,
		stores:       stores,
		computations: map[string]*computeRecord{},
	}
}

// RegisterProgram runs the JIT (MIR normalize -> bytecode lower -> protocol
// translate -> plan build) once and caches the result under id (spec §4.1
// "JIT: MIR -> Bytecode -> Protocol DAG").
func (cl *Cluster) RegisterProgram(id string, prog *mir.Program) error {
	normalized, err := mir.Normalize(prog)
	if err != nil {
		return rpcstatus.InvalidArgument("nodeservice: normalizing program %s: %v", id, err)
	}
	bc, err := bytecode.Lower(cl.field, normalized)
	if err != nil {
		return rpcstatus.InvalidArgument("nodeservice: lowering program %s: %v", id, err)
	}
	dag, err := protocol.Translate(bc)
	if err != nil {
		return rpcstatus.InvalidArgument("nodeservice: translating program %s: %v", id, err)
	}
	p, err := plan.Build(dag, plan.Parallel)
	if err != nil {
		return rpcstatus.InvalidArgument("nodeservice: planning program %s: %v", id, err)
	}
	if err := plan.Validate(p); err != nil {
		return rpcstatus.Internal("nodeservice: invalid plan for program %s: %v", id, err)
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.programs[id] = &compiledProgram{bc: bc, dag: dag, plan: p}
	return nil
}

// GeneratePreprocessing tops up every party's pool by count elements of
// kind, via the in-process multi-party simulator (test/devnet-only path):
// one generator runs each PREP-* protocol across every party's store at
// once, and every party's pool counter is advanced by the same count.
func (cl *Cluster) GeneratePreprocessing(kind protocol.PreprocessingKind, count int) error {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	leader := cl.cluster.Leader()
	g := &simulator.PreprocessingGenerator{
		Field:              cl.field,
		Cluster:            cl.cluster,
		Pool:               cl.pools[leader],
		Stores:             cl.stores,
		Bitwidth:           executor.DefaultBitwidth,
		ModulusPlaceholder: 1 << 16,
	}
	if err := g.Generate(kind, count); err != nil {
		return fmt.Errorf("nodeservice: generating %s: %w", kind, err)
	}
	for id, pool := range cl.pools {
		if id != leader && count > 0 {
			pool.Generate(kind, count)
		}
	}
	return nil
}

// StoreValues persists values under id (spec §6 "Store values"). The
// receipt is accepted, not verified — no on-chain client exists in this
// repo (SPEC_FULL.md §5 Non-goals).
func (cl *Cluster) StoreValues(_ context.Context, id string, values map[string]ShareSet, perm Permissions, _ Receipt) error {
	if len(values) == 0 {
		return rpcstatus.InvalidArgument("nodeservice: StoreValues %s: no values given", id)
	}
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.values[id] = &storedValue{shares: values, perm: perm}
	return nil
}

// RetrieveValues returns the stored shares to a permitted caller (spec §6
// "Retrieve values").
func (cl *Cluster) RetrieveValues(_ context.Context, id, caller string) (map[string]ShareSet, error) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	v, ok := cl.values[id]
	if !ok {
		return nil, rpcstatus.InvalidArgument("nodeservice: no stored value set %s", id)
	}
	if !v.perm.Allows(caller) {
		return nil, rpcstatus.FailedPrecondition("nodeservice: %s is not permitted to read %s", caller, id)
	}
	return v.shares, nil
}

// InvokeCompute decodes the named input bindings into each party's runtime
// memory, drives the full cluster to completion in-process, and returns a
// compute id (spec §6 "Invoke compute: ... returns a compute id").
func (cl *Cluster) InvokeCompute(_ context.Context, req InvokeComputeRequest) (string, error) {
	cl.mu.Lock()
	prog, ok := cl.programs[req.ProgramID]
	if !ok {
		cl.mu.Unlock()
		return "", rpcstatus.InvalidArgument("nodeservice: unknown program %s", req.ProgramID)
	}
	cl.nextComputeID++
	computeID := fmt.Sprintf("compute-%d", cl.nextComputeID)

	log := cl.log.WithComputation(computeID)

	comps := make(map[party.ID]*executor.Computation, cl.cluster.N())
	for _, p := range cl.cluster.Parties() {
		comp := executor.New(computeID, cl.field, cl.cluster, p.ID, prog.plan, prog.dag.Outputs,
			cl.pools[p.ID], cl.stores[p.ID],
			len(prog.bc.Inputs), len(prog.bc.Literals), prog.bc.OperationsCount())
		if err := cl.bindInputs(comp, prog, req, p.ID); err != nil {
			cl.mu.Unlock()
			return "", err
		}
		comps[p.ID] = comp
	}
	cl.mu.Unlock()

	outputs, err := simulator.RunComputation(cl.cluster, comps)
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if err != nil {
		log.WithError(err).Errorf("computation failed")
		cl.computations[computeID] = &computeRecord{err: err}
		return computeID, rpcstatus.Aborted(err.Error())
	}
	cl.computations[computeID] = &computeRecord{outputSlots: prog.dag.Outputs, outputs: outputs}
	log.Infof("computation done")
	return computeID, nil
}

// bindInputs decodes req.InputValues' stored shares for party self into
// comp's runtime memory, by the input's declared address and type.
func (cl *Cluster) bindInputs(comp *executor.Computation, prog *compiledProgram, req InvokeComputeRequest, self party.ID) error {
	for i, in := range prog.bc.Inputs {
		storedID, ok := req.InputValues[in.Name]
		if !ok {
			return rpcstatus.InvalidArgument("nodeservice: no binding for input %q", in.Name)
		}
		v, ok := cl.values[storedID]
		if !ok {
			return rpcstatus.InvalidArgument("nodeservice: unknown stored value %s for input %q", storedID, in.Name)
		}
		set, ok := v.shares[in.Name]
		if !ok {
			return rpcstatus.InvalidArgument("nodeservice: stored value %s carries no share named %q", storedID, in.Name)
		}
		raw, ok := set[string(self)]
		if !ok {
			return rpcstatus.InvalidArgument("nodeservice: stored value %s has no share for party %s", storedID, self)
		}
		elem, err := cl.field.FromBytes(raw)
		if err != nil {
			return rpcstatus.InvalidArgument("nodeservice: decoding input %q: %v", in.Name, err)
		}
		var value runtime.Value
		if in.Type.IsSecret() {
			value = shamir.Share{Value: elem}
		} else {
			value = elem
		}
		if err := comp.Memory().SetInput(i, value); err != nil {
			return rpcstatus.Internal("nodeservice: binding input %q: %v", in.Name, err)
		}
	}
	return nil
}

// RetrieveComputeResults streams named outputs once Done (spec §6
// "Retrieve compute results": "streams named outputs once the computation
// reaches Done"). Outputs bound to a named party are returned as a
// per-party map of every party's raw runtime.Value (a shamir.Share for
// secret results); outputs
// with no party binding ("" == public/revealed) are reconstructed across
// every party's share into one field.Element before returning.
func (cl *Cluster) RetrieveComputeResults(_ context.Context, computeID string) (map[string]interface{}, error) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	rec, ok := cl.computations[computeID]
	if !ok {
		return nil, rpcstatus.InvalidArgument("nodeservice: unknown compute id %s", computeID)
	}
	if rec.err != nil {
		return nil, rpcstatus.Aborted(rec.err.Error())
	}

	out := make(map[string]interface{}, len(rec.outputSlots))
	for _, slot := range rec.outputSlots {
		v, err := cl.collectOutputLocked(slot, rec)
		if err != nil {
			return nil, err
		}
		out[slot.Name] = v
	}
	return out, nil
}

// collectOutputLocked resolves one output slot's value across every
// party's copy: party-bound outputs surface as a per-party map of raw
// runtime.Value (the caller already knows which party's share it may
// read), everything else is reconstructed into one public field.Element.
func (cl *Cluster) collectOutputLocked(slot bytecode.OutputSlot, rec *computeRecord) (interface{}, error) {
	if slot.Party != "" {
		perParty := make(map[party.ID]runtime.Value, len(rec.outputs))
		for id, vals := range rec.outputs {
			perParty[id] = vals[slot.Name]
		}
		return perParty, nil
	}
	shares := make(map[party.ID]shamir.Share, len(rec.outputs))
	for id, vals := range rec.outputs {
		s, ok := vals[slot.Name].(shamir.Share)
		if !ok {
			// Already public (e.g. a Compare/Reveal node resolved to a
			// field.Element at the protocol layer); any one party's copy
			// suffices.
			return vals[slot.Name], nil
		}
		shares[id] = s
	}
	elem, err := shamir.Reconstruct(cl.field, cl.cluster, shares)
	if err != nil {
		return nil, rpcstatus.Internal("nodeservice: reconstructing output %q: %v", slot.Name, err)
	}
	return elem, nil
}

// PoolStatus reports every known preprocessing kind's [consumed, generated)
// offsets for the cluster leader's pool (spec §6 "Pool status"); every
// party's pool advances in lockstep in this co-located reference
// implementation, so the leader's counters stand in for the cluster's.
// The auxiliary-material-available flag is always true here: this
// reference implementation has no DKG bring-up gate distinct from pool
// readiness (see internal/statemachine/ecdsa, eddsa for the real DKG
// machinery exercised directly by their own tests).
func (cl *Cluster) PoolStatus(_ context.Context) ([]PoolStatusEntry, bool, error) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	pool := cl.pools[cl.cluster.Parties()[0].ID]
	kinds := []protocol.PreprocessingKind{
		protocol.Compare, protocol.DivisionSecretDivisor, protocol.Modulo,
		protocol.EqualityPublicOutput, protocol.TruncPr, protocol.Trunc,
		protocol.EqualitySecretOutput, protocol.RandomInteger, protocol.RandomBoolean,
		protocol.MultiplicationTriple,
	}
	entries := make([]PoolStatusEntry, 0, len(kinds))
	for _, k := range kinds {
		consumed, generated := pool.Status(k)
		entries = append(entries, PoolStatusEntry{Kind: k.String(), Consumed: consumed, Generated: generated})
	}
	return entries, true, nil
}
