package vertex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	daederrors "github.com/wehubfusion/Daedalus/pkg/errors"
	"github.com/wehubfusion/Daedalus/pkg/host"
)

func TestParseChannelArgs(t *testing.T) {
	h, args, err := ParseChannelArgs("1A2B|extra")
	require.NoError(t, err)
	assert.Equal(t, host.Handle(0x1A2B), h)
	assert.Equal(t, []string{"1A2B", "extra"}, args)
}

func TestParseChannelArgsSingleField(t *testing.T) {
	h, args, err := ParseChannelArgs("FF")
	require.NoError(t, err)
	assert.Equal(t, host.Handle(0xFF), h)
	assert.Equal(t, []string{"FF"}, args)
}

func TestParseChannelArgsBadHandle(t *testing.T) {
	_, _, err := ParseChannelArgs("zz|x")
	require.Error(t, err)
	assert.True(t, daederrors.IsConfiguration(err))
}

func TestParseChannelArgsEmpty(t *testing.T) {
	_, _, err := ParseChannelArgs("")
	require.Error(t, err)
	assert.True(t, daederrors.IsConfiguration(err))
}
