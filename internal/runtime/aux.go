package runtime

import (
	"errors"
	"sync"
)

// ErrAuxMaterialNotReady is returned when a threshold-ECDSA signature is
// requested before auxiliary info (Paillier keys, proofs) has been
// generated and validated for the cluster.
var ErrAuxMaterialNotReady = errors.New("runtime: auxiliary signing material not ready")

// AuxMaterial holds one-shot, per-party auxiliary signing material (spec
// §4.2 "EcdsaAuxInfo": threshold-ECDSA needs a one-time auxiliary info setup
// per key, independent of and longer-lived than any single computation's
// preprocessing). Unlike Pool's per-kind monotonic counters, this is a
// single generate-once-then-read-many value: there is nothing to reserve a
// range of, only a presence/validity flag and an opaque blob per party.
type AuxMaterial struct {
	mu    sync.RWMutex
	blobs map[string][]byte // party id -> opaque material (Paillier keys, zk proofs)
	valid bool
}

// NewAuxMaterial constructs an empty, not-yet-valid material holder.
func NewAuxMaterial() *AuxMaterial {
	return &AuxMaterial{blobs: make(map[string][]byte)}
}

// Publish records party's material and, once every expected party has
// published, marks the material valid. partyCount is the cluster size at
// material-generation time (spec's AUX-INFO protocol runs once for the
// whole cluster, not per computation).
func (a *AuxMaterial) Publish(party string, blob []byte, partyCount int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.blobs[party] = blob
	a.valid = len(a.blobs) >= partyCount
}

// Ready reports whether every party's material has been published.
func (a *AuxMaterial) Ready() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.valid
}

// Get returns party's published material, failing with
// ErrAuxMaterialNotReady until the full set is in.
func (a *AuxMaterial) Get(party string) ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.valid {
		return nil, ErrAuxMaterialNotReady
	}
	blob, ok := a.blobs[party]
	if !ok {
		return nil, ErrAuxMaterialNotReady
	}
	return blob, nil
}

// Reset discards all published material, forcing regeneration (used when a
// party's material is suspected compromised or a share refresh invalidates
// the prior AUX-INFO run).
func (a *AuxMaterial) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.blobs = make(map[string][]byte)
	a.valid = false
}
