package jsworker

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	daederrors "github.com/wehubfusion/Daedalus/pkg/errors"
	"github.com/wehubfusion/Daedalus/pkg/worker"
)

const sampleModule = `
var calls = [];
var Counter = {
	Run: function (inv) {
		calls.push(inv.channelArgs);
		if (inv.args[1] === "explode") {
			throw new Error("bad partition");
		}
	}
};
`

func writeModule(t *testing.T, src string) (dir, name string) {
	t.Helper()
	dir = t.TempDir()
	name = "counter.js"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644))
	return dir, name
}

func TestLoadMissingModule(t *testing.T) {
	_, err := Load(t.TempDir(), "absent.js", zap.NewNop())
	require.Error(t, err)
	assert.True(t, daederrors.IsResolution(err))
}

func TestLoadBrokenModule(t *testing.T) {
	dir, name := writeModule(t, "var x = {;")
	_, err := Load(dir, name, zap.NewNop())
	require.Error(t, err)
	assert.True(t, daederrors.IsResolution(err))
}

func TestResolveMissingTypeOrMethod(t *testing.T) {
	dir, name := writeModule(t, sampleModule)
	mod, err := Load(dir, name, zap.NewNop())
	require.NoError(t, err)

	_, err = mod.Resolve("Absent", "Run")
	require.Error(t, err)
	assert.True(t, daederrors.IsResolution(err))
	assert.ErrorIs(t, err, daederrors.ErrNoEntryPoint)

	_, err = mod.Resolve("Counter", "Absent")
	require.Error(t, err)
	assert.True(t, daederrors.IsResolution(err))
}

func TestInvokeSuccess(t *testing.T) {
	dir, name := writeModule(t, sampleModule)
	mod, err := Load(dir, name, zap.NewNop())
	require.NoError(t, err)

	ep, err := mod.Resolve("Counter", "Run")
	require.NoError(t, err)

	err = ep.Invoke(context.Background(), worker.Invocation{ChannelArgs: "1a|data", Threads: 2})
	require.NoError(t, err)
}

func TestInvokeThrowBecomesWorkerError(t *testing.T) {
	dir, name := writeModule(t, sampleModule)
	mod, err := Load(dir, name, zap.NewNop())
	require.NoError(t, err)

	ep, err := mod.Resolve("Counter", "Run")
	require.NoError(t, err)

	err = ep.Invoke(context.Background(), worker.Invocation{ChannelArgs: "1a|explode"})
	require.Error(t, err)
	assert.True(t, daederrors.IsWorker(err))
	assert.Contains(t, err.Error(), "bad partition")
}
