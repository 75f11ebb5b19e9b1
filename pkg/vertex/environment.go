// Package vertex builds the per-process execution environment for a single
// vertex of a dataflow job. The environment parses the host's channel
// argument string, partitions the multiplexed channel ports across the
// vertex's declared inputs and outputs, sizes write buffers against machine
// memory, and pushes input volume estimates downstream as output size hints.
package vertex

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wehubfusion/Daedalus/pkg/channel"
	"github.com/wehubfusion/Daedalus/pkg/host"
)

// Environment is the process-scoped execution context of one vertex. It is
// constructed once at process start and lives for the process duration; there
// is no teardown. Port allocation advances internal cursors, so an
// Environment is not safe for concurrent use: the shell drives it from the
// single dispatch goroutine.
type Environment struct {
	handle host.Handle
	bridge host.Bridge
	params Parameters

	inputCount  uint32
	outputCount uint32
	vertexID    int64

	args []string

	nextInput      uint32
	nextInputPort  uint32
	nextOutputPort uint32

	writeBufferBytes int32

	logger *zap.Logger
}

// NewEnvironment parses the raw channel argument string, queries the vertex
// shape from the host, sizes the write buffer, and registers output size
// hints when the vertex has outputs. Callers over-requesting readers or
// writers beyond the declared shape violate the construction contract; the
// allocation methods do not re-validate it.
func NewEnvironment(ctx context.Context, bridge host.Bridge, rawArgs string, params Parameters, logger *zap.Logger) (*Environment, error) {
	if bridge == nil {
		return nil, fmt.Errorf("bridge cannot be nil")
	}
	if params == nil {
		return nil, fmt.Errorf("parameters cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	handle, args, err := ParseChannelArgs(rawArgs)
	if err != nil {
		return nil, err
	}

	inputs, err := bridge.InputCount(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("query input count: %w", err)
	}
	outputs, err := bridge.OutputCount(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("query output count: %w", err)
	}
	vertexID, err := bridge.VertexID(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("query vertex id: %w", err)
	}

	mem, memKnown := bridge.AvailablePhysicalMemory(ctx)
	buffer := computeWriteBufferSize(mem, memKnown,
		params.RemoteArchitecture() == Arch32Bit, params.UseLargeBuffer(), outputs)

	env := &Environment{
		handle:           handle,
		bridge:           bridge,
		params:           params,
		inputCount:       inputs,
		outputCount:      outputs,
		vertexID:         vertexID,
		args:             args,
		writeBufferBytes: buffer,
		logger:           logger,
	}

	if outputs > 0 {
		if err := env.propagateSizeHints(ctx); err != nil {
			return nil, err
		}
	}

	logger.Info("vertex environment ready",
		zap.Int64("vertex_id", vertexID),
		zap.String("handle", handle.Hex()),
		zap.Uint32("inputs", inputs),
		zap.Uint32("outputs", outputs),
		zap.Int32("write_buffer_bytes", buffer))

	return env, nil
}

// MakeReader allocates the port span of the next logical input, in
// declaration order. Each call consumes one input.
func (env *Environment) MakeReader() *channel.Reader {
	input := env.nextInput
	count := env.params.InputPortCount(input)

	reader := &channel.Reader{
		Ports:     channel.PortRange{Start: env.nextInputPort, End: env.nextInputPort + count},
		KeepOrder: env.params.KeepInputPortOrder(input),
	}

	env.nextInput++
	env.nextInputPort += count
	return reader
}

// MakeWriter allocates the port span of the next logical output. Writers
// receive one port each until the last declared output, which takes every
// remaining port up to the host's true output count; the host may expose
// more ports than the declared arity and the final writer absorbs them.
func (env *Environment) MakeWriter() *channel.Writer {
	start := env.nextOutputPort

	end := env.outputCount
	if env.nextOutputPort+1 < env.params.OutputArity() {
		end = start + 1
	}

	writer := &channel.Writer{
		Ports:       channel.PortRange{Start: start, End: end},
		BufferBytes: env.writeBufferBytes,
	}

	env.nextOutputPort = end
	return writer
}

// Handle returns the native host handle owned by this process.
func (env *Environment) Handle() host.Handle {
	return env.handle
}

// VertexID returns the numeric identity of this vertex within the job.
func (env *Environment) VertexID() int64 {
	return env.vertexID
}

// InputCount returns the number of logical inputs declared for the vertex.
func (env *Environment) InputCount() uint32 {
	return env.inputCount
}

// OutputCount returns the true number of output channel ports.
func (env *Environment) OutputCount() uint32 {
	return env.outputCount
}

// Args returns the fields of the channel argument string, handle included.
func (env *Environment) Args() []string {
	return env.args
}

// WriteBufferSize returns the per-port write buffer size in bytes.
func (env *Environment) WriteBufferSize() int32 {
	return env.writeBufferBytes
}
