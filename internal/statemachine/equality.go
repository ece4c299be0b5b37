package statemachine

import (
	"github.com/nilmpc/mpcnode/internal/field"
	"github.com/nilmpc/mpcnode/internal/party"
	"github.com/nilmpc/mpcnode/internal/runtime"
	"github.com/nilmpc/mpcnode/internal/shamir"
)

// NewEqualsPublic tests a==b with a public boolean result (spec's
// EQUALS-PUBLIC). Standard randomised zero test: mask the difference with
// a uniform nonzero pool element and reveal the product. The product is 0
// exactly when a==b and uniformly random over nonzero values otherwise, so
// the reveal leaks nothing beyond the yes/no answer itself.
func NewEqualsPublic(f *field.Field, cluster *party.Cluster, self party.ID, a, b shamir.Share, triple runtime.Triple, tuple runtime.EqualityTuple) Machine {
	diff := shamir.Share{Value: f.Sub(a.Value, b.Value)}
	return newSequencer(1,
		func(results []interface{}) (interface{}, error) {
			masked := results[0].(field.Element)
			return f.IsZero(masked), nil
		},
		func(prior []interface{}) (Machine, error) {
			mul := NewMulShareShare(f, cluster, self, diff, tuple.Mask, triple)
			return &revealAfter{inner: mul, innerRounds: 2, f: f, cluster: cluster, self: self}, nil
		},
	)
}

// NewEqualsSecret tests a==b with a secret-shared boolean result (spec's
// EQUALS-SECRET). Built from two Compare calls rather than a bespoke
// circuit: for bounded-range shares, exactly one of (a<b), (b<a) can hold
// when a != b, and neither holds when a == b, so
// equals = 1 - (a<b) - (b<a), a purely local combination of the two
// Compare outputs.
func NewEqualsSecret(f *field.Field, cluster *party.Cluster, self party.ID, a, b shamir.Share, tupleAB, tupleBA runtime.CompareTuple) Machine {
	return newSequencer(4,
		func(results []interface{}) (interface{}, error) {
			lt1 := results[0].(shamir.Share)
			lt2 := results[1].(shamir.Share)
			v := f.Sub(f.Sub(f.One(), lt1.Value), lt2.Value)
			return shamir.Share{Value: v}, nil
		},
		func(prior []interface{}) (Machine, error) {
			return NewCompare(f, cluster, self, a, b, tupleAB), nil
		},
		func(prior []interface{}) (Machine, error) {
			return NewCompare(f, cluster, self, b, a, tupleBA), nil
		},
	)
}
