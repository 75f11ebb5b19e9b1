package vertex

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wehubfusion/Daedalus/pkg/host"
)

// unknownInputVolume stands in for the total input volume when any input
// refuses a length estimate.
const unknownInputVolume int64 = 5 << 30

// propagateSizeHints spreads the expected input volume evenly across the
// output channels so downstream consumers can pre-provision. Runs once during
// construction, before any writer exists, and only when the vertex has
// outputs. A host failure here fails construction: hints registered against a
// dead host would be silently lost.
func (env *Environment) propagateSizeHints(ctx context.Context) error {
	total := int64(0)
	known := true
	for i := uint32(0); i < env.inputCount; i++ {
		length, err := env.bridge.ExpectedInputLength(ctx, env.handle, i)
		if err != nil {
			return fmt.Errorf("query expected input length: %w", err)
		}
		if length == host.UnknownInputLength {
			known = false
			break
		}
		total += length
	}
	if !known {
		total = unknownInputVolume
	}

	hint := total / int64(env.outputCount)
	for o := uint32(0); o < env.outputCount; o++ {
		if err := env.bridge.SetOutputSizeHint(ctx, env.handle, o, hint); err != nil {
			return fmt.Errorf("register output size hint: %w", err)
		}
	}

	env.logger.Debug("registered output size hints",
		zap.Int64("total_input_bytes", total),
		zap.Bool("estimated", !known),
		zap.Int64("hint_bytes", hint),
		zap.Uint32("outputs", env.outputCount))

	return nil
}
