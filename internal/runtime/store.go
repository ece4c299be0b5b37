package runtime

import (
	"errors"
	"fmt"
	"sync"

	"github.com/nilmpc/mpcnode/internal/protocol"
)

// ErrElementNotAvailable is returned when a reservation's range outruns
// what has actually been materialised into the store — distinct from
// ErrPoolExhausted (Pool.Reserve already checked the generated/consumed
// counters; this would only fire if the generator advanced the counters
// without backfilling the corresponding elements, an invariant violation
// rather than ordinary back-pressure).
var ErrElementNotAvailable = errors.New("runtime: reserved preprocessing element not materialised")

// ElementStore holds this party's own share of every preprocessing element
// the generator has materialised so far, indexed the same way Pool indexes
// counts: per kind, in generation order (spec §3 "Preprocessing pool" is
// silent on *where* the materialised values live, only on the
// [consumed,generated) accounting Pool implements — this is that missing
// half, kept as its own type since it is per-party state while Pool's
// counters are cluster-visible metadata).
//
// Elements are stored as interface{} rather than one typed slice per kind:
// the concrete payload (runtime.Triple, runtime.CompareTuple, a bare
// shamir.Share for RAN/RAN-BIT, ...) is owned by internal/statemachine's
// PREP-* constructors, not by this package, mirroring the same reasoning
// Value's own doc comment gives.
type ElementStore struct {
	mu   sync.RWMutex
	data map[protocol.PreprocessingKind][]interface{}
}

func NewElementStore() *ElementStore {
	return &ElementStore{data: make(map[protocol.PreprocessingKind][]interface{})}
}

// Append records newly generated elements for kind, in generation order.
func (s *ElementStore) Append(kind protocol.PreprocessingKind, elems ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[kind] = append(s.data[kind], elems...)
}

// Get returns the count elements of kind starting at start (the offsets a
// Reservation names), failing if the store does not yet hold that many.
func (s *ElementStore) Get(kind protocol.PreprocessingKind, start, count uint64) ([]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.data[kind]
	end := start + count
	if end > uint64(len(all)) {
		return nil, fmt.Errorf("%w: %s range [%d,%d) but only %d materialised", ErrElementNotAvailable, kind, start, end, len(all))
	}
	return all[start:end], nil
}
