package vertex

// Arch32Bit is the RemoteArchitecture value identifying a 32-bit target,
// which caps the write buffer ceiling.
const Arch32Bit = "x86"

// Parameters describes the statically declared shape of a vertex: how many
// logical outputs it produces, how the multiplexed ports of each input are
// consumed, and its buffer preferences. Implementations are immutable; the
// environment references them, it does not own them.
type Parameters interface {
	// KeepInputPortOrder reports whether the multiplexed sub-channels of the
	// given input must preserve their relative record order.
	KeepInputPortOrder(input uint32) bool

	// InputPortCount returns the number of channel ports multiplexed into
	// the given input.
	InputPortCount(input uint32) uint32

	// OutputArity returns the declared number of logical outputs, i.e. how
	// many writers the vertex will request.
	OutputArity() uint32

	// RemoteArchitecture identifies the processor architecture the vertex
	// runs on, e.g. Arch32Bit.
	RemoteArchitecture() string

	// UseLargeBuffer selects the large write buffer baseline.
	UseLargeBuffer() bool
}

// StaticParameters is a fixed-value Parameters implementation for vertices
// whose shape is known at registration time.
type StaticParameters struct {
	// PortCounts holds the port count per input. Inputs beyond its length
	// have a single port.
	PortCounts []uint32

	// KeepOrder holds the order-preservation flag per input. Inputs beyond
	// its length do not preserve order.
	KeepOrder []bool

	// Outputs is the declared output arity.
	Outputs uint32

	// Architecture identifies the target processor architecture.
	Architecture string

	// LargeBuffers selects the large write buffer baseline.
	LargeBuffers bool
}

func (p StaticParameters) KeepInputPortOrder(input uint32) bool {
	if int(input) < len(p.KeepOrder) {
		return p.KeepOrder[input]
	}
	return false
}

func (p StaticParameters) InputPortCount(input uint32) uint32 {
	if int(input) < len(p.PortCounts) {
		return p.PortCounts[input]
	}
	return 1
}

func (p StaticParameters) OutputArity() uint32 {
	return p.Outputs
}

func (p StaticParameters) RemoteArchitecture() string {
	return p.Architecture
}

func (p StaticParameters) UseLargeBuffer() bool {
	return p.LargeBuffers
}
