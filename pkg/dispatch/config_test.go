package dispatch

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigThreads(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		threads int
	}{
		{name: "unset falls back to cpu count", raw: "", threads: runtime.NumCPU()},
		{name: "positive override", raw: "6", threads: 6},
		{name: "surrounding whitespace tolerated", raw: " 8 ", threads: 8},
		{name: "garbage falls back", raw: "many", threads: runtime.NumCPU()},
		{name: "zero falls back", raw: "0", threads: runtime.NumCPU()},
		{name: "negative falls back", raw: "-2", threads: runtime.NumCPU()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{WorkerThreads: tt.raw}
			assert.Equal(t, tt.threads, cfg.Threads())
		})
	}
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.HostURL)
	assert.Equal(t, "vertex.host", cfg.HostSubjectPrefix)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "vertex-diagnostics", cfg.DiagBlobContainer)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("VERTEX_WORKER_THREADS", "4")
	t.Setenv("VERTEX_HOST_URL", "nats://host:4222")
	t.Setenv("VERTEX_HEALTH_PORT", "9090")
	t.Setenv("VERTEX_ENVIRONMENT", "staging")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Threads())
	assert.Equal(t, "nats://host:4222", cfg.HostURL)
	assert.Equal(t, 9090, cfg.HealthPort)
	assert.Equal(t, "staging", cfg.Environment)
}
