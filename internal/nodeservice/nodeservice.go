// Package nodeservice defines the node service surface (spec §6) as a Go
// interface — store/retrieve values, invoke compute, retrieve compute
// results, pool status — plus an in-memory reference implementation used
// by tests. Everything outside the core (a real gRPC listener, persistent
// blob storage, an on-chain receipt verifier) plugs in through this
// boundary; the core itself never depends on any of those concretely.
package nodeservice

import (
	"context"

	"github.com/nilmpc/mpcnode/internal/mir"
)

// Permissions gates who may retrieve a stored value (spec §6 "Store
// values: accepts ... a permissions descriptor"). A caller is permitted
// if it is the owner or named in Readers.
type Permissions struct {
	Owner   string
	Readers []string
}

// Allows reports whether caller may read a value guarded by p.
func (p Permissions) Allows(caller string) bool {
	if caller == p.Owner {
		return true
	}
	for _, r := range p.Readers {
		if r == caller {
			return true
		}
	}
	return false
}

// Receipt is the opaque proof-of-payment spec §6 requires alongside Store
// values and Invoke compute; no on-chain client exists in this repo, so it
// carries only what a collaborator would need to have already verified.
type Receipt struct {
	ID     string
	Payer  string
	Amount int64
}

// ShareSet is one named value's per-party encoded shares (spec §6 "Share
// encoding": a little-endian fixed-width byte sequence, width determined
// by the cluster prime). A caller that stores a public value uses the
// same per-party map with an identical byte string at every party, since
// the wire representation does not otherwise distinguish public from
// secret at rest.
type ShareSet map[string][]byte // party.ID (string form) -> encoded share

// InvokeComputeRequest names the program and input bindings spec §6's
// "Invoke compute" bullet describes.
type InvokeComputeRequest struct {
	ProgramID string
	// InputValues maps a MIR input name to the stored value id supplying it.
	InputValues map[string]string
	Receipt     Receipt
}

// PoolStatusEntry reports one preprocessing element kind's pool state
// (spec §6 "Pool status: ... current [consumed, generated) offsets and an
// auxiliary-material-available flag").
type PoolStatusEntry struct {
	Kind      string
	Consumed  uint64
	Generated uint64
}

// Service is the node service surface's programmatic contract; a gRPC
// layer (out of scope here) would translate wire requests into these
// calls and translate returned errors through internal/rpcstatus.
type Service interface {
	RegisterProgram(id string, prog *mir.Program) error
	StoreValues(ctx context.Context, id string, values map[string]ShareSet, perm Permissions, receipt Receipt) error
	RetrieveValues(ctx context.Context, id, caller string) (map[string]ShareSet, error)
	InvokeCompute(ctx context.Context, req InvokeComputeRequest) (string, error)
	RetrieveComputeResults(ctx context.Context, computeID string) (map[string]interface{}, error)
	PoolStatus(ctx context.Context) ([]PoolStatusEntry, bool, error)
}
