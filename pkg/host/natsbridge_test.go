package host

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	daederrors "github.com/wehubfusion/Daedalus/pkg/errors"
)

// fakeRequester scripts one reply (or error) and records the request.
type fakeRequester struct {
	lastSubject string
	lastData    []byte
	sawDeadline bool

	reply hostReply
	err   error
}

func (f *fakeRequester) RequestWithContext(ctx context.Context, subj string, data []byte) (*nats.Msg, error) {
	f.lastSubject = subj
	f.lastData = data
	_, f.sawDeadline = ctx.Deadline()
	if f.err != nil {
		return nil, f.err
	}
	payload, err := json.Marshal(f.reply)
	if err != nil {
		return nil, err
	}
	return &nats.Msg{Data: payload}, nil
}

func newTestBridge(t *testing.T, f *fakeRequester) *NATSBridge {
	t.Helper()
	b, err := NewNATSBridge(f, NATSBridgeConfig{}, zap.NewNop())
	require.NoError(t, err)
	return b
}

func TestNewNATSBridgeRequiresRequester(t *testing.T) {
	_, err := NewNATSBridge(nil, NATSBridgeConfig{}, zap.NewNop())
	require.Error(t, err)
}

func TestNewNATSBridgeAppliesDefaults(t *testing.T) {
	b := newTestBridge(t, &fakeRequester{})
	assert.Equal(t, "vertex.host", b.prefix)
	assert.Equal(t, 5*time.Second, b.wait)
}

func TestInputCountQuery(t *testing.T) {
	f := &fakeRequester{reply: hostReply{Value: 3}}
	b := newTestBridge(t, f)

	n, err := b.InputCount(context.Background(), Handle(0x1A2B))
	require.NoError(t, err)
	assert.Equal(t, uint32(3), n)
	assert.Equal(t, "vertex.host.inputs", f.lastSubject)

	var req hostRequest
	require.NoError(t, json.Unmarshal(f.lastData, &req))
	assert.Equal(t, "1a2b", req.Handle)
}

func TestCountOutOfRange(t *testing.T) {
	f := &fakeRequester{reply: hostReply{Value: -5}}
	b := newTestBridge(t, f)

	_, err := b.OutputCount(context.Background(), 1)
	require.Error(t, err)
}

func TestExpectedInputLengthPassesSentinelThrough(t *testing.T) {
	f := &fakeRequester{reply: hostReply{Value: UnknownInputLength}}
	b := newTestBridge(t, f)

	n, err := b.ExpectedInputLength(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Equal(t, UnknownInputLength, n)
}

func TestSetOutputSizeHintPayload(t *testing.T) {
	f := &fakeRequester{}
	b := newTestBridge(t, f)

	require.NoError(t, b.SetOutputSizeHint(context.Background(), Handle(7), 2, 150))
	assert.Equal(t, "vertex.host.sizehint", f.lastSubject)

	var req hostRequest
	require.NoError(t, json.Unmarshal(f.lastData, &req))
	assert.Equal(t, "7", req.Handle)
	assert.Equal(t, uint32(2), req.Index)
	assert.Equal(t, int64(150), req.Bytes)
}

func TestHostRejectedReply(t *testing.T) {
	f := &fakeRequester{reply: hostReply{Error: "no such vertex"}}
	b := newTestBridge(t, f)

	_, err := b.VertexID(context.Background(), 1)
	require.ErrorIs(t, err, daederrors.ErrHostRejected)
	assert.Contains(t, err.Error(), "no such vertex")
}

func TestTransportErrorMapping(t *testing.T) {
	b := newTestBridge(t, &fakeRequester{err: nats.ErrTimeout})
	_, err := b.VertexID(context.Background(), 1)
	require.ErrorIs(t, err, daederrors.ErrTimeout)

	b = newTestBridge(t, &fakeRequester{err: nats.ErrConnectionClosed})
	_, err = b.VertexID(context.Background(), 1)
	require.ErrorIs(t, err, daederrors.ErrNotConnected)
}

func TestRequestTimeoutAppliedWhenContextHasNoDeadline(t *testing.T) {
	f := &fakeRequester{reply: hostReply{Value: 1}}
	b := newTestBridge(t, f)

	_, err := b.VertexID(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, f.sawDeadline)
}

func TestAvailablePhysicalMemoryDegradesToUnknown(t *testing.T) {
	b := newTestBridge(t, &fakeRequester{err: nats.ErrTimeout})
	_, ok := b.AvailablePhysicalMemory(context.Background())
	assert.False(t, ok)

	b = newTestBridge(t, &fakeRequester{reply: hostReply{Value: -1}})
	_, ok = b.AvailablePhysicalMemory(context.Background())
	assert.False(t, ok)

	b = newTestBridge(t, &fakeRequester{reply: hostReply{Value: 1 << 30}})
	mem, ok := b.AvailablePhysicalMemory(context.Background())
	assert.True(t, ok)
	assert.Equal(t, uint64(1<<30), mem)
}

func TestParseHandle(t *testing.T) {
	h, err := ParseHandle("1A2B")
	require.NoError(t, err)
	assert.Equal(t, Handle(0x1A2B), h)
	assert.Equal(t, "1a2b", h.Hex())

	_, err = ParseHandle("zz")
	require.Error(t, err)
}

func TestStaticBridge(t *testing.T) {
	s := &Static{
		Inputs:       2,
		Outputs:      3,
		ID:           42,
		InputLengths: []int64{100, 200},
		Memory:       1 << 32,
		MemoryKnown:  true,
	}
	ctx := context.Background()

	n, err := s.InputCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), n)

	length, err := s.ExpectedInputLength(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(200), length)

	length, err = s.ExpectedInputLength(ctx, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, UnknownInputLength, length)

	require.NoError(t, s.SetOutputSizeHint(ctx, 1, 0, 150))
	assert.Equal(t, int64(150), s.Hints[0])
}
