package rpcstatus

import (
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
)

func TestInvalidArgument(t *testing.T) {
	err := InvalidArgument("unknown operation id %d", 7)
	st, ok := status.FromError(err)
	require.True(t, ok)
	require.Equal(t, codes.InvalidArgument, st.Code())
}

func TestResourceExhaustedAttachesRetryInfo(t *testing.T) {
	err := ResourceExhausted(QuotaPreprocessing, 5, "pool exhausted for %s", "MultiplicationTriple")
	st, ok := status.FromError(err)
	require.True(t, ok)
	require.Equal(t, codes.ResourceExhausted, st.Code())

	var found bool
	for _, d := range st.Details() {
		if ri, ok := d.(*errdetails.RetryInfo); ok {
			found = true
			require.Equal(t, int64(5), ri.RetryDelay.Seconds)
		}
	}
	require.True(t, found, "expected a RetryInfo detail")
}

func TestAborted(t *testing.T) {
	err := Aborted("peer unavailable")
	st, ok := status.FromError(err)
	require.True(t, ok)
	require.Equal(t, codes.Aborted, st.Code())
}

func TestInternal(t *testing.T) {
	err := Internal("invariant violated: %s", "unknown protocol kind")
	st, ok := status.FromError(err)
	require.True(t, ok)
	require.Equal(t, codes.Internal, st.Code())
}
