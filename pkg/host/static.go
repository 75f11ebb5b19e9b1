package host

import "context"

// Static is an in-memory Bridge with fixed answers. It backs examples and
// tests that embed the shell without a live host. Not safe for concurrent
// use: the shell queries from a single goroutine.
type Static struct {
	// Inputs is the declared logical input count.
	Inputs uint32

	// Outputs is the true output channel port count.
	Outputs uint32

	// ID is the vertex identity.
	ID int64

	// InputLengths holds per-input byte estimates. Inputs beyond its length
	// report UnknownInputLength.
	InputLengths []int64

	// Memory is the available physical memory reported when MemoryKnown.
	Memory      uint64
	MemoryKnown bool

	// Hints records every SetOutputSizeHint call by output index.
	Hints map[uint32]int64
}

func (s *Static) InputCount(ctx context.Context, h Handle) (uint32, error) {
	return s.Inputs, nil
}

func (s *Static) OutputCount(ctx context.Context, h Handle) (uint32, error) {
	return s.Outputs, nil
}

func (s *Static) VertexID(ctx context.Context, h Handle) (int64, error) {
	return s.ID, nil
}

func (s *Static) ExpectedInputLength(ctx context.Context, h Handle, input uint32) (int64, error) {
	if int(input) < len(s.InputLengths) {
		return s.InputLengths[input], nil
	}
	return UnknownInputLength, nil
}

func (s *Static) SetOutputSizeHint(ctx context.Context, h Handle, output uint32, bytes int64) error {
	if s.Hints == nil {
		s.Hints = make(map[uint32]int64)
	}
	s.Hints[output] = bytes
	return nil
}

func (s *Static) AvailablePhysicalMemory(ctx context.Context) (uint64, bool) {
	return s.Memory, s.MemoryKnown
}
