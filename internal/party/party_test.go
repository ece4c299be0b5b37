package party

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func fiveParties() []Party {
	return []Party{{ID: "p3"}, {ID: "p1"}, {ID: "p5"}, {ID: "p4"}, {ID: "p2"}}
}

func TestAbscissaAssignmentIsSortedAndDeterministic(t *testing.T) {
	c, err := New(fiveParties(), "p1", 2)
	require.NoError(t, err)

	want := map[ID]int64{"p1": 1, "p2": 2, "p3": 3, "p4": 4, "p5": 5}
	for id, x := range want {
		got, err := c.Abscissa(id)
		require.NoError(t, err)
		require.Equal(t, x, got)
	}
}

func TestThresholdInvariant(t *testing.T) {
	_, err := New(fiveParties(), "p1", 2) // 2*2=4 < 5, ok
	require.NoError(t, err)

	_, err = New(fiveParties(), "p1", 3) // 2*3=6 >= 5, rejected
	require.Error(t, err)
}

func TestLeaderMustBeMember(t *testing.T) {
	_, err := New(fiveParties(), "ghost", 1)
	require.Error(t, err)
}

func TestDuplicatePartyRejected(t *testing.T) {
	_, err := New([]Party{{ID: "a"}, {ID: "a"}, {ID: "b"}}, "a", 0)
	require.Error(t, err)
}

func TestMaxCorruptions(t *testing.T) {
	c, err := New(fiveParties(), "p1", 2)
	require.NoError(t, err)
	require.Equal(t, (5-2-1)/2, c.MaxCorruptions())
}
