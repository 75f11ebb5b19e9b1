// Package host defines the boundary between the vertex shell and the native
// job-execution host that launched it. The host owns process lifecycle,
// channel plumbing and machine resource accounting; the shell reaches it only
// through the Bridge capability, keyed by the opaque Handle the host passed on
// the command line.
package host

import (
	"context"
	"fmt"
	"strconv"
)

// UnknownInputLength is the sentinel the host reports for an input whose
// expected byte length cannot be estimated.
const UnknownInputLength int64 = -1

// Handle is the opaque native host handle identifying this vertex process.
// It is exclusively owned by the process for its lifetime and is never
// released explicitly.
type Handle uint64

// ParseHandle decodes a handle from its hexadecimal command-line form
// (no 0x prefix).
func ParseHandle(s string) (Handle, error) {
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid handle %q: %w", s, err)
	}
	return Handle(v), nil
}

// Hex returns the handle in its canonical command-line form.
func (h Handle) Hex() string {
	return strconv.FormatUint(uint64(h), 16)
}

// Bridge is the capability the shell uses for every host round trip. All
// queries are synchronous; implementations decide transport and timeouts.
type Bridge interface {
	// InputCount returns the number of logical inputs declared for the vertex.
	InputCount(ctx context.Context, h Handle) (uint32, error)

	// OutputCount returns the true number of output channel ports the host
	// exposes, which may exceed the statically declared output arity.
	OutputCount(ctx context.Context, h Handle) (uint32, error)

	// VertexID returns the numeric identity of this vertex within the job.
	VertexID(ctx context.Context, h Handle) (int64, error)

	// ExpectedInputLength returns the host's byte-length estimate for one
	// logical input, or UnknownInputLength when it has none.
	ExpectedInputLength(ctx context.Context, h Handle, input uint32) (int64, error)

	// SetOutputSizeHint registers an expected byte volume for one output
	// channel so downstream consumers can pre-provision.
	SetOutputSizeHint(ctx context.Context, h Handle, output uint32, bytes int64) error

	// AvailablePhysicalMemory reports the machine's available physical
	// memory. ok is false when the host cannot observe it.
	AvailablePhysicalMemory(ctx context.Context) (uint64, bool)
}
