package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	cause := stderrors.New("boom")

	withCause := NewWorker("entry point failed", cause)
	assert.Equal(t, "[worker] entry point failed: boom", withCause.Error())

	withoutCause := NewConfiguration("bad channel argument", nil)
	assert.Equal(t, "[configuration] bad channel argument", withoutCause.Error())
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("boom")
	err := NewResolution("module missing", cause)

	require.ErrorIs(t, err, cause)
	assert.Equal(t, cause, err.Unwrap())
}

func TestCodePredicates(t *testing.T) {
	assert.True(t, IsConfiguration(NewConfiguration("x", nil)))
	assert.True(t, IsResolution(NewResolution("x", nil)))
	assert.True(t, IsWorker(NewWorker("x", nil)))

	assert.False(t, IsConfiguration(NewWorker("x", nil)))
	assert.False(t, IsResolution(stderrors.New("plain")))
	assert.False(t, IsWorker(nil))
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	inner := NewConfiguration("bad handle", nil)
	wrapped := fmt.Errorf("starting shell: %w", inner)

	assert.True(t, IsConfiguration(wrapped))
	assert.False(t, IsResolution(wrapped))
}

func TestSentinelPredicates(t *testing.T) {
	assert.True(t, IsTimeout(fmt.Errorf("query input count: %w", ErrTimeout)))
	assert.True(t, IsNotConnected(ErrNotConnected))
	assert.False(t, IsTimeout(ErrNotConnected))
}
