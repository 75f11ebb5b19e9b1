package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryResolve(t *testing.T) {
	reg := NewRegistry()
	ep := EntryPointFunc(func(ctx context.Context, inv Invocation) error { return nil })

	reg.Register("Histogram", "Build", ep)

	resolved, ok := reg.Resolve("Histogram", "Build")
	require.True(t, ok)
	assert.NotNil(t, resolved)

	_, ok = reg.Resolve("Histogram", "Merge")
	assert.False(t, ok)

	assert.True(t, reg.Has("Histogram", "Build"))
	assert.False(t, reg.Has("Sort", "Run"))
	assert.Equal(t, []string{"Histogram.Build"}, reg.RegisteredTargets())
}

func TestCallSuccess(t *testing.T) {
	var got Invocation
	ep := EntryPointFunc(func(ctx context.Context, inv Invocation) error {
		got = inv
		return nil
	})

	err := Call(context.Background(), "T.M", ep, Invocation{ChannelArgs: "1|a", Threads: 4})
	require.NoError(t, err)
	assert.Equal(t, "1|a", got.ChannelArgs)
	assert.Equal(t, 4, got.Threads)
}

func TestCallWrapsReturnedError(t *testing.T) {
	cause := errors.New("records out of order")
	ep := EntryPointFunc(func(ctx context.Context, inv Invocation) error { return cause })

	err := Call(context.Background(), "T.M", ep, Invocation{})
	require.Error(t, err)

	var ie *InvokeError
	require.ErrorAs(t, err, &ie)
	assert.Same(t, cause, ie.Inner)
	assert.Contains(t, ie.Error(), "T.M")
}

func TestCallWrapsErrorPanic(t *testing.T) {
	cause := errors.New("broken pipe")
	ep := EntryPointFunc(func(ctx context.Context, inv Invocation) error { panic(cause) })

	err := Call(context.Background(), "T.M", ep, Invocation{})
	var ie *InvokeError
	require.ErrorAs(t, err, &ie)
	assert.Same(t, cause, ie.Inner)
}

func TestCallWrapsValuePanic(t *testing.T) {
	ep := EntryPointFunc(func(ctx context.Context, inv Invocation) error { panic("boom") })

	err := Call(context.Background(), "T.M", ep, Invocation{})
	var ie *InvokeError
	require.ErrorAs(t, err, &ie)
	assert.Contains(t, ie.Inner.Error(), "boom")
}
