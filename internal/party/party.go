// Package party implements the cluster membership model: parties, their
// deterministic abscissas, and the threshold/leader configuration shared by
// every sub-protocol state machine (spec §3 "Party").
package party

import (
	"fmt"
	"sort"

	"github.com/nilmpc/mpcnode/internal/field"
)

// ID is an opaque party identifier.
type ID string

// Party is a single participant in the cluster.
type Party struct {
	ID ID
}

// Cluster is an ordered set of parties with a designated leader, a privacy
// threshold t, and deterministic non-zero abscissas assigned by sorting
// party ids and numbering them 1, 2, 3, ... in order.
type Cluster struct {
	parties   []Party
	leader    ID
	threshold int
	abscissas map[ID]int64
}

// New constructs a Cluster from an unordered set of parties. Abscissas are
// assigned deterministically regardless of input order (spec §3: "Every
// party is assigned a deterministic non-zero abscissa in the field by
// sorting party ids and assigning 1, 2, 3, ... in order").
//
// Returns an error unless 2*threshold < len(parties) (spec §3 "Share":
// "2t < n is required to reconstruct by interpolation") and leader names a
// party actually present in the set.
func New(parties []Party, leader ID, threshold int) (*Cluster, error) {
	if len(parties) == 0 {
		return nil, fmt.Errorf("party: cluster must have at least one party")
	}
	sorted := make([]Party, len(parties))
	copy(sorted, parties)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	seen := make(map[ID]struct{}, len(sorted))
	abscissas := make(map[ID]int64, len(sorted))
	leaderFound := false
	for i, p := range sorted {
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("party: duplicate party id %q", p.ID)
		}
		seen[p.ID] = struct{}{}
		abscissas[p.ID] = int64(i + 1)
		if p.ID == leader {
			leaderFound = true
		}
	}
	if !leaderFound {
		return nil, fmt.Errorf("party: leader %q is not a member of the cluster", leader)
	}
	n := len(sorted)
	if 2*threshold >= n {
		return nil, fmt.Errorf("party: threshold t=%d must satisfy 2t < n=%d", threshold, n)
	}
	return &Cluster{parties: sorted, leader: leader, threshold: threshold, abscissas: abscissas}, nil
}

// Parties returns the cluster's parties in deterministic (sorted) order.
func (c *Cluster) Parties() []Party {
	out := make([]Party, len(c.parties))
	copy(out, c.parties)
	return out
}

// N returns the cluster size.
func (c *Cluster) N() int { return len(c.parties) }

// Threshold returns the privacy threshold t.
func (c *Cluster) Threshold() int { return c.threshold }

// Leader returns the leader party id.
func (c *Cluster) Leader() ID { return c.leader }

// MaxCorruptions returns the robustness bound ⌊(n-t-1)/2⌋ used by REVEAL's
// error-correcting decoder (spec §3 "Share", §9 "Error correction in
// REVEAL").
func (c *Cluster) MaxCorruptions() int {
	return (c.N() - c.threshold - 1) / 2
}

// Abscissa returns the non-zero field element assigned to the given party.
func (c *Cluster) Abscissa(id ID) (int64, error) {
	x, ok := c.abscissas[id]
	if !ok {
		return 0, fmt.Errorf("party: %q is not a member of the cluster", id)
	}
	return x, nil
}

// AbscissaElem is Abscissa reduced into the runtime's field.
func (c *Cluster) AbscissaElem(f *field.Field, id ID) (field.Element, error) {
	x, err := c.Abscissa(id)
	if err != nil {
		return field.Element{}, err
	}
	return f.FromInt64(x), nil
}

// Has reports whether id is a member of the cluster.
func (c *Cluster) Has(id ID) bool {
	_, ok := c.abscissas[id]
	return ok
}
