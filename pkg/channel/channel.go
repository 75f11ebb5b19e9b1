// Package channel holds the port descriptors the shell hands to the record
// serialization layer. The shell only partitions multiplexed port numbers;
// moving bytes through the ports is the serialization layer's job.
package channel

import "fmt"

// PortRange is a half-open range [Start, End) of multiplexed channel port
// numbers owned by a single reader or writer.
type PortRange struct {
	Start uint32
	End   uint32
}

// Count returns the number of ports in the range.
func (r PortRange) Count() uint32 {
	return r.End - r.Start
}

// String implements fmt.Stringer for log output.
func (r PortRange) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.End)
}

// Reader describes the port span backing one logical vertex input.
type Reader struct {
	// Ports is the contiguous span of input port numbers to read from.
	Ports PortRange

	// KeepOrder preserves the relative record order of the multiplexed
	// sub-channels instead of interleaving them as they arrive.
	KeepOrder bool
}

// Writer describes the port span backing one logical vertex output.
type Writer struct {
	// Ports is the contiguous span of output port numbers to write to.
	Ports PortRange

	// BufferBytes is the write buffer size for each port, chosen by the
	// environment from machine memory and output fan-out.
	BufferBytes int32
}
