// Package rpcstatus maps the four client-facing error classes spec §7
// names onto google.golang.org/grpc's codes/status vocabulary — the node
// service surface's only error boundary (spec §6 "Errors"); the executor
// and state machines themselves return plain Go errors, never a grpc
// status, and this package is where that translation happens exactly
// once.
package rpcstatus

import (
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/protobuf/types/known/durationpb"
)

// Quota names the well-known resource-exhausted quotas spec §6 fixes:
// "Quotas are surfaced by well-known strings PREPROCESSING and REQUESTS".
type Quota string

const (
	QuotaPreprocessing Quota = "PREPROCESSING"
	QuotaRequests      Quota = "REQUESTS"
)

// InvalidArgument reports malformed MIR or values at the boundary (spec §7
// class 1, client errors — never retried, never surfaced to peers).
func InvalidArgument(format string, args ...interface{}) error {
	return status.Errorf(codes.InvalidArgument, format, args...)
}

// FailedPrecondition reports insufficient balance or a permission denial.
func FailedPrecondition(format string, args ...interface{}) error {
	return status.Errorf(codes.FailedPrecondition, format, args...)
}

// ResourceExhausted reports pool or request-rate exhaustion, attaching a
// RetryInfo detail so a well-behaved client backs off rather than
// hot-looping (spec §6 "with a retry-after hint").
func ResourceExhausted(quota Quota, retryAfterSeconds int64, format string, args ...interface{}) error {
	st := status.Newf(codes.ResourceExhausted, format, args...)
	withDetail, err := st.WithDetails(&errdetails.RetryInfo{
		RetryDelay: durationpb.New(time.Duration(retryAfterSeconds) * time.Second),
	})
	if err != nil {
		// Attaching details is best-effort; a client that can't parse
		// the detail still gets a correctly-coded status.
		return st.Err()
	}
	return withDetail.Err()
}

// Aborted reports a protocol abort, naming the reason (spec §7 class 3).
func Aborted(reason string) error {
	return status.Errorf(codes.Aborted, "aborted: %s", reason)
}

// Internal reports a bug or invariant violation (spec §7 class 4) —
// logged and surfaced generically; never leaks internal detail to the
// caller beyond what format/args supply.
func Internal(format string, args ...interface{}) error {
	return status.Errorf(codes.Internal, format, args...)
}
