package vertex

// Write buffer sizing bounds. The ceiling derives from machine memory, the
// baseline from the vertex's buffer preference.
const (
	// fallbackAvailableMemory stands in when the host cannot observe the
	// machine's physical memory.
	fallbackAvailableMemory uint64 = 512 << 20

	// headroomDivisor reserves memory for everything that is not write
	// buffering.
	headroomDivisor uint64 = 4

	// ceiling32Bit caps the pre-division ceiling on 32-bit targets.
	ceiling32Bit uint64 = 1 << 30

	// largeWriteBuffer is the baseline when the vertex asks for large
	// buffers, defaultWriteBuffer otherwise.
	largeWriteBuffer   uint64 = 256 << 20
	defaultWriteBuffer uint64 = 8 << 20

	// minWriteBuffer is the floor below which buffering stops paying off.
	minWriteBuffer uint64 = 16 << 10
)

// computeWriteBufferSize picks the per-port write buffer size. The available
// memory, divided for headroom and capped on 32-bit targets, is split evenly
// across the output ports to form a ceiling; the preference baseline is then
// clamped down to that ceiling and up to the floor. The floor wins when the
// two conflict. The result always fits in 32 bits because neither baseline
// exceeds int32 range.
func computeWriteBufferSize(availableMemory uint64, memoryKnown bool, is32Bit bool, largeBuffers bool, outputs uint32) int32 {
	if !memoryKnown {
		availableMemory = fallbackAvailableMemory
	}

	ceiling := availableMemory / headroomDivisor
	if is32Bit && ceiling > ceiling32Bit {
		ceiling = ceiling32Bit
	}
	if outputs > 0 {
		ceiling /= uint64(outputs)
	}

	size := defaultWriteBuffer
	if largeBuffers {
		size = largeWriteBuffer
	}
	if size > ceiling {
		size = ceiling
	}
	if size < minWriteBuffer {
		size = minWriteBuffer
	}

	return int32(size)
}
