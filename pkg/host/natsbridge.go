package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	daederrors "github.com/wehubfusion/Daedalus/pkg/errors"
)

// Requester is the narrow slice of a NATS connection the bridge needs.
// *nats.Conn satisfies it directly; tests substitute scripted fakes.
type Requester interface {
	RequestWithContext(ctx context.Context, subj string, data []byte) (*nats.Msg, error)
}

// Host query operations, appended to the subject prefix.
const (
	opInputCount  = "inputs"
	opOutputCount = "outputs"
	opVertexID    = "id"
	opInputLength = "inputlength"
	opSizeHint    = "sizehint"
	opMemory      = "memory"
)

// NATSBridgeConfig holds configuration for the NATS host bridge
type NATSBridgeConfig struct {
	// SubjectPrefix is prepended to every query subject
	SubjectPrefix string

	// RequestTimeout bounds each host round trip when the caller's context
	// carries no deadline of its own
	RequestTimeout time.Duration
}

// DefaultNATSBridgeConfig returns a configuration with sensible defaults
func DefaultNATSBridgeConfig() NATSBridgeConfig {
	return NATSBridgeConfig{
		SubjectPrefix:  "vertex.host",
		RequestTimeout: 5 * time.Second,
	}
}

// NATSBridge implements Bridge over JSON request-reply on core NATS. The
// handle travels in the payload so the host can serve every vertex of a job
// from one subject space.
type NATSBridge struct {
	rc     Requester
	prefix string
	wait   time.Duration
	logger *zap.Logger
}

// NewNATSBridge creates a bridge over an established NATS connection.
func NewNATSBridge(rc Requester, config NATSBridgeConfig, logger *zap.Logger) (*NATSBridge, error) {
	if rc == nil {
		return nil, fmt.Errorf("requester cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.SubjectPrefix == "" {
		config.SubjectPrefix = DefaultNATSBridgeConfig().SubjectPrefix
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = DefaultNATSBridgeConfig().RequestTimeout
	}

	return &NATSBridge{
		rc:     rc,
		prefix: config.SubjectPrefix,
		wait:   config.RequestTimeout,
		logger: logger,
	}, nil
}

type hostRequest struct {
	Handle string `json:"handle,omitempty"`
	Index  uint32 `json:"index"`
	Bytes  int64  `json:"bytes"`
}

type hostReply struct {
	Value int64  `json:"value"`
	Error string `json:"error,omitempty"`
}

// InputCount returns the number of logical inputs declared for the vertex.
func (b *NATSBridge) InputCount(ctx context.Context, h Handle) (uint32, error) {
	return b.queryCount(ctx, opInputCount, h)
}

// OutputCount returns the true number of output channel ports.
func (b *NATSBridge) OutputCount(ctx context.Context, h Handle) (uint32, error) {
	return b.queryCount(ctx, opOutputCount, h)
}

// VertexID returns the numeric identity of this vertex within the job.
func (b *NATSBridge) VertexID(ctx context.Context, h Handle) (int64, error) {
	return b.query(ctx, opVertexID, hostRequest{Handle: h.Hex()})
}

// ExpectedInputLength returns the host's byte-length estimate for one input.
func (b *NATSBridge) ExpectedInputLength(ctx context.Context, h Handle, input uint32) (int64, error) {
	return b.query(ctx, opInputLength, hostRequest{Handle: h.Hex(), Index: input})
}

// SetOutputSizeHint registers an expected byte volume for one output channel.
func (b *NATSBridge) SetOutputSizeHint(ctx context.Context, h Handle, output uint32, bytes int64) error {
	_, err := b.query(ctx, opSizeHint, hostRequest{Handle: h.Hex(), Index: output, Bytes: bytes})
	return err
}

// AvailablePhysicalMemory reports the machine's available physical memory.
// Any transport or host failure degrades to unknown rather than erroring;
// callers fall back to a conservative default.
func (b *NATSBridge) AvailablePhysicalMemory(ctx context.Context) (uint64, bool) {
	v, err := b.query(ctx, opMemory, hostRequest{})
	if err != nil {
		b.logger.Debug("available memory query failed", zap.Error(err))
		return 0, false
	}
	if v < 0 {
		return 0, false
	}
	return uint64(v), true
}

func (b *NATSBridge) queryCount(ctx context.Context, op string, h Handle) (uint32, error) {
	v, err := b.query(ctx, op, hostRequest{Handle: h.Hex()})
	if err != nil {
		return 0, err
	}
	if v < 0 || v > math.MaxUint32 {
		return 0, fmt.Errorf("%s: host returned count out of range: %d", op, v)
	}
	return uint32(v), nil
}

func (b *NATSBridge) query(ctx context.Context, op string, req hostRequest) (int64, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return 0, fmt.Errorf("%s: encode request: %w", op, err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.wait)
		defer cancel()
	}

	subject := b.prefix + "." + op
	msg, err := b.rc.RequestWithContext(ctx, subject, data)
	if err != nil {
		switch {
		case errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded):
			return 0, fmt.Errorf("%s: %w", op, daederrors.ErrTimeout)
		case errors.Is(err, nats.ErrConnectionClosed) || errors.Is(err, nats.ErrInvalidConnection):
			return 0, fmt.Errorf("%s: %w", op, daederrors.ErrNotConnected)
		default:
			return 0, fmt.Errorf("%s: request failed: %w", op, err)
		}
	}

	var reply hostReply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return 0, fmt.Errorf("%s: decode reply: %w", op, err)
	}
	if reply.Error != "" {
		return 0, fmt.Errorf("%s: %w: %s", op, daederrors.ErrHostRejected, reply.Error)
	}
	return reply.Value, nil
}
