package runtime

import (
	"fmt"
	"sync"

	"github.com/nilmpc/mpcnode/internal/protocol"
)

// ErrPoolExhausted is returned when a reservation would need more elements
// than have been generated (spec §4.3 "failure to reserve (pool
// exhaustion) fails the computation with PreprocessingExhausted").
type ErrPoolExhausted struct {
	Kind      protocol.PreprocessingKind
	Requested int
	Available int
}

func (e *ErrPoolExhausted) Error() string {
	return fmt.Sprintf("runtime: preprocessing pool exhausted for %s: requested %d, available %d", e.Kind, e.Requested, e.Available)
}

// counter tracks one element kind's (generated, consumed) offsets. A single
// mutex per kind gives single-writer-per-kind semantics (spec §9
// "Preprocessing pool": "use a single-writer-per-kind design to avoid
// cross-kind contention") without serialising unrelated kinds against each
// other.
type counter struct {
	mu        sync.Mutex
	generated uint64
	consumed  uint64
}

// Pool is the cluster-wide, persistent-across-computations preprocessing
// material pool (spec §3 "Preprocessing pool").
type Pool struct {
	counters map[protocol.PreprocessingKind]*counter
}

// NewPool constructs an empty pool (generated=consumed=0 for every kind).
func NewPool() *Pool {
	p := &Pool{counters: make(map[protocol.PreprocessingKind]*counter)}
	for _, k := range []protocol.PreprocessingKind{
		protocol.Compare, protocol.DivisionSecretDivisor, protocol.Modulo,
		protocol.EqualityPublicOutput, protocol.TruncPr, protocol.Trunc,
		protocol.EqualitySecretOutput, protocol.RandomInteger, protocol.RandomBoolean,
		protocol.MultiplicationTriple,
	} {
		p.counters[k] = &counter{}
	}
	return p
}

func (p *Pool) counterFor(kind protocol.PreprocessingKind) *counter {
	c, ok := p.counters[kind]
	if !ok {
		c = &counter{}
		p.counters[kind] = c
	}
	return c
}

// Reservation names the half-open range [Start, Start+Count) of elements of
// Kind a computation reserved.
type Reservation struct {
	Kind  protocol.PreprocessingKind
	Start uint64
	Count uint64
}

// Reserve atomically hands out the half-open interval [consumed,
// consumed+count) for kind and advances consumed (spec §3 invariants:
// "generated ≥ consumed; consumed is strictly non-decreasing; a reservation
// hands out a half-open interval atomically").
func (p *Pool) Reserve(kind protocol.PreprocessingKind, count int) (Reservation, error) {
	if count < 0 {
		return Reservation{}, fmt.Errorf("runtime: negative reservation count %d", count)
	}
	c := p.counterFor(kind)
	c.mu.Lock()
	defer c.mu.Unlock()
	need := c.consumed + uint64(count)
	if need > c.generated {
		return Reservation{}, &ErrPoolExhausted{Kind: kind, Requested: count, Available: int(c.generated - c.consumed)}
	}
	start := c.consumed
	c.consumed = need
	return Reservation{Kind: kind, Start: start, Count: uint64(count)}, nil
}

// ReserveAll attempts every reservation in requirements atomically in one
// shot: either all succeed or none are applied (spec §4.3 "Reserve": "it
// reserves, atomically and in one shot, every preprocessing range the plan
// declares"; spec §8 "Reservation atomicity": "a computation either
// reserves every element it needs or reserves none").
//
// Per-kind counters each have their own mutex (single-writer-per-kind), so
// a true single global atomic transaction across kinds would need a
// two-phase commit; instead this locks every involved kind's counter up
// front, in a fixed (kind-value) order to avoid deadlock between concurrent
// callers, checks all of them, and only then mutates any — giving the same
// all-or-nothing observable behaviour without a global lock.
func (p *Pool) ReserveAll(requirements protocol.Requirements, kinds []protocol.PreprocessingKind) ([]Reservation, error) {
	sortedKinds := append([]protocol.PreprocessingKind(nil), kinds...)
	for i := 1; i < len(sortedKinds); i++ {
		for j := i; j > 0 && sortedKinds[j] < sortedKinds[j-1]; j-- {
			sortedKinds[j], sortedKinds[j-1] = sortedKinds[j-1], sortedKinds[j]
		}
	}

	counters := make([]*counter, len(sortedKinds))
	for i, k := range sortedKinds {
		counters[i] = p.counterFor(k)
		counters[i].mu.Lock()
	}
	defer func() {
		for _, c := range counters {
			c.mu.Unlock()
		}
	}()

	for i, k := range sortedKinds {
		need := requirements.Count(k)
		if counters[i].consumed+uint64(need) > counters[i].generated {
			return nil, &ErrPoolExhausted{Kind: k, Requested: need, Available: int(counters[i].generated - counters[i].consumed)}
		}
	}

	reservations := make([]Reservation, 0, len(sortedKinds))
	for i, k := range sortedKinds {
		need := requirements.Count(k)
		start := counters[i].consumed
		counters[i].consumed += uint64(need)
		reservations = append(reservations, Reservation{Kind: k, Start: start, Count: uint64(need)})
	}
	return reservations, nil
}

// Generate records that count new elements of kind were produced by the
// preprocessing generator loop (monotonically advances generated; never
// called by a computation consumer, only by the generator).
func (p *Pool) Generate(kind protocol.PreprocessingKind, count int) {
	c := p.counterFor(kind)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generated += uint64(count)
}

// Status reports the current [consumed, generated) offsets for kind, used
// by `mpcnode pool status`.
func (p *Pool) Status(kind protocol.PreprocessingKind) (consumed, generated uint64) {
	c := p.counterFor(kind)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.consumed, c.generated
}
